package gemini

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	httputil "github.com/healthsync/server/pkg/infrastructure/http"
	"github.com/healthsync/server/pkg/pacing"
)

type fakeModel struct {
	calls     int
	errs      []error
	reply     string
	lastParts []genai.Part
}

func (f *fakeModel) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.lastParts = parts
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(f.reply)}},
		}},
	}, nil
}

func newTestDescriber(model *fakeModel, rec *pacing.Recorder) *Describer {
	policy := httputil.DefaultRetryPolicy()
	policy.Sleep = rec.Sleep
	return &Describer{model: model, policy: policy, logger: slog.Default()}
}

func TestParseFoodResponse(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"cappuccino", "cappuccino", true},
		{"  pizza, caesar salad\n", "pizza, caesar salad", true},
		{`"cappuccino"`, "cappuccino", true},
		{"NO_FOOD", "", false},
		{" no_food.\n", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseFoodResponse(tt.raw)
		assert.Equal(t, tt.want, got, "raw %q", tt.raw)
		assert.Equal(t, tt.ok, ok, "raw %q", tt.raw)
	}
}

func TestDescribe_SendsPromptAndImage(t *testing.T) {
	model := &fakeModel{reply: "fried eggs with tomatoes\n"}
	d := newTestDescriber(model, &pacing.Recorder{})

	desc, ok, err := d.Describe(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fried eggs with tomatoes", desc)
	require.Len(t, model.lastParts, 2)
	blob, isBlob := model.lastParts[1].(genai.Blob)
	require.True(t, isBlob)
	assert.Equal(t, "image/jpeg", blob.MIMEType)
}

func TestDescribe_NoFood(t *testing.T) {
	d := newTestDescriber(&fakeModel{reply: "NO_FOOD"}, &pacing.Recorder{})

	_, ok, err := d.Describe(context.Background(), []byte("img"), "image/png")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDescribe_RetriesWhenResourceExhausted(t *testing.T) {
	model := &fakeModel{
		reply: "pizza",
		errs:  []error{status.Error(codes.ResourceExhausted, "quota"), status.Error(codes.ResourceExhausted, "quota")},
	}
	rec := &pacing.Recorder{}
	d := newTestDescriber(model, rec)

	desc, ok, err := d.Describe(context.Background(), []byte("img"), "image/jpeg")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "pizza", desc)
	assert.Equal(t, 3, model.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.Delays)
}

func TestDescribe_OtherErrorsAreNotRetried(t *testing.T) {
	model := &fakeModel{errs: []error{errors.New("blocked by safety filter")}}
	d := newTestDescriber(model, &pacing.Recorder{})

	_, _, err := d.Describe(context.Background(), []byte("img"), "image/jpeg")

	assert.Error(t, err)
	assert.Equal(t, 1, model.calls)
}

func TestDescribe_EmptyImage(t *testing.T) {
	d := newTestDescriber(&fakeModel{}, &pacing.Recorder{})
	_, _, err := d.Describe(context.Background(), nil, "image/jpeg")
	assert.Error(t, err)
}
