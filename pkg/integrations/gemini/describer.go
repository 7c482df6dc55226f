// Package gemini describes the food visible in a photo with a Gemini vision model.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	httputil "github.com/healthsync/server/pkg/infrastructure/http"
)

const (
	DefaultModel = "gemini-2.5-flash"

	// NoFoodSentinel is the model's answer for photos without food or drink.
	NoFoodSentinel = "NO_FOOD"
)

const foodPrompt = `List only the food and drink items in this image. No descriptions, no presentation details, no extra words.

Good examples:
- "cappuccino" (not "coffee with latte art" or "cup of coffee")
- "fried eggs with tomatoes and cucumber" (not "plate of fried eggs served with fresh tomatoes and cucumber slices")
- "pizza" (not "slice of pizza on a white plate")
- "caesar salad" (not "fresh caesar salad with croutons")

Just the food items, separated by commas if multiple dishes.

If no food/drink is visible, respond "NO_FOOD".`

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Describer turns a photo into a terse comma-separated list of food items.
type Describer struct {
	client *genai.Client
	model  contentGenerator
	policy httputil.RetryPolicy
	logger *slog.Logger
}

// NewDescriber connects to the Gemini API with an API key.
func NewDescriber(ctx context.Context, apiKey, modelName string, policy httputil.RetryPolicy, logger *slog.Logger) (*Describer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// Listing items wants a deterministic, short answer.
	model.SetTemperature(0.2)
	model.SetMaxOutputTokens(200)

	return &Describer{
		client: client,
		model:  model,
		policy: policy,
		logger: logger.With("component", "gemini", "model", modelName),
	}, nil
}

func (d *Describer) Close() error {
	if d.client == nil {
		return nil
	}
	return d.client.Close()
}

// Describe returns the food items in image. ok is false when the model saw no food.
func (d *Describer) Describe(ctx context.Context, image []byte, mimeType string) (string, bool, error) {
	if len(image) == 0 {
		return "", false, errors.New("empty image")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}

	var resp *genai.GenerateContentResponse
	err := d.policy.Do(ctx, func(ctx context.Context) error {
		var genErr error
		resp, genErr = d.model.GenerateContent(ctx,
			genai.Text(foodPrompt),
			genai.Blob{MIMEType: mimeType, Data: image},
		)
		if genErr != nil && isRateLimited(genErr) {
			d.logger.Warn("Gemini rate limited, backing off", "error", genErr)
		}
		return genErr
	}, isRateLimited)
	if err != nil {
		return "", false, fmt.Errorf("failed to generate content: %w", err)
	}

	raw, err := responseText(resp)
	if err != nil {
		return "", false, err
	}

	desc, ok := ParseFoodResponse(raw)
	return desc, ok, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// ParseFoodResponse normalizes the model answer. The sentinel and blank answers yield ok=false.
func ParseFoodResponse(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	text = strings.Trim(text, "\"'`")
	text = strings.TrimSpace(strings.TrimSuffix(text, "."))

	if text == "" || strings.EqualFold(text, NoFoodSentinel) {
		return "", false
	}
	return text, true
}

func isRateLimited(err error) bool {
	switch status.Code(err) {
	case codes.ResourceExhausted, codes.Unavailable:
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code == http.StatusServiceUnavailable
	}
	return false
}
