package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/healthsync/server/pkg/infrastructure/oauth"
	"github.com/healthsync/server/pkg/integrations/fitbit"
)

const (
	DefaultTimezone       = "Europe/Zurich"
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultCredentialFile = ".env"
	DefaultDayDelay       = 5 * time.Second

	CredentialStoreFile      = "file"
	CredentialStoreFirestore = "firestore"
)

var validate = validator.New()

// Config holds the configuration of the CLI and the function.
type Config struct {
	ProjectID string
	Timezone  string `validate:"required"`
	Location  *time.Location

	CredentialStore string `validate:"oneof=file firestore"`
	CredentialFile  string `validate:"required_if=CredentialStore file"`

	FitbitClientID     string `validate:"required"`
	FitbitClientSecret string `validate:"required"`

	GoogleClientID     string `validate:"required"`
	GoogleClientSecret string `validate:"required"`
	GeminiAPIKey       string `validate:"required"`
	GeminiModel        string `validate:"required"`
	DriveFolderID      string `validate:"required"`

	NotionToken      string `validate:"required"`
	NotionDatabaseID string `validate:"required"`

	ArchiveBucket string
	EnablePublish bool
	SyncTopic     string `validate:"required_if=EnablePublish true"`

	SentryDSN         string `validate:"omitempty,url"`
	SentryEnvironment string

	LogLevel            string        `validate:"omitempty,oneof=debug info warn error"`
	FitbitCategoryDelay time.Duration `validate:"gte=0"`
	DayDelay            time.Duration `validate:"gte=0"`
}

// Sources selects which upstreams a run reads from.
type Sources struct {
	Fitbit bool
	Food   bool
}

// Fields each source or command depends on, by Config field name.
var (
	FitbitFields = []string{"FitbitClientID", "FitbitClientSecret"}
	FoodFields   = []string{"GoogleClientID", "GoogleClientSecret", "GeminiAPIKey", "GeminiModel", "DriveFolderID"}
	NotionFields = []string{"NotionToken", "NotionDatabaseID"}
)

// LoadConfig reads configuration from environment variables after loading
// the credential file. Variables already set in the environment win.
func LoadConfig() (*Config, error) {
	credentialFile := envOr("CREDENTIAL_FILE", DefaultCredentialFile)
	if err := godotenv.Load(credentialFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", credentialFile, err)
	}

	cfg := &Config{
		ProjectID:           os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Timezone:            envOr("HEALTHSYNC_TIMEZONE", DefaultTimezone),
		CredentialStore:     strings.ToLower(envOr("CREDENTIAL_STORE", CredentialStoreFile)),
		CredentialFile:      credentialFile,
		FitbitClientID:      os.Getenv("FITBIT_CLIENT_ID"),
		FitbitClientSecret:  os.Getenv("FITBIT_CLIENT_SECRET"),
		GoogleClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  os.Getenv("GOOGLE_CLIENT_SECRET"),
		GeminiAPIKey:        os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:         envOr("GEMINI_MODEL", DefaultGeminiModel),
		DriveFolderID:       os.Getenv("DRIVE_FOLDER_ID"),
		NotionToken:         os.Getenv("NOTION_TOKEN"),
		NotionDatabaseID:    os.Getenv("NOTION_DATABASE_ID"),
		ArchiveBucket:       os.Getenv("ARCHIVE_BUCKET"),
		EnablePublish:       os.Getenv("ENABLE_PUBLISH") == "true",
		SyncTopic:           os.Getenv("SYNC_TOPIC"),
		SentryDSN:           os.Getenv("SENTRY_DSN"),
		SentryEnvironment:   envOr("SENTRY_ENVIRONMENT", "production"),
		LogLevel:            strings.ToLower(os.Getenv("LOG_LEVEL")),
		FitbitCategoryDelay: fitbit.DefaultCategoryDelay,
		DayDelay:            DefaultDayDelay,
	}

	var err error
	if cfg.FitbitCategoryDelay, err = envDuration("FITBIT_CATEGORY_DELAY", cfg.FitbitCategoryDelay); err != nil {
		return nil, err
	}
	if cfg.DayDelay, err = envDuration("BACKFILL_DAY_DELAY", cfg.DayDelay); err != nil {
		return nil, err
	}
	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("HEALTHSYNC_TIMEZONE: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings needed by the enabled sources. Settings of a
// disabled source are not required.
func (c *Config) Validate(src Sources) error {
	var skip []string
	if !src.Fitbit {
		skip = append(skip, FitbitFields...)
	}
	if !src.Food {
		skip = append(skip, FoodFields...)
	}
	if err := validate.StructExcept(c, skip...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateFields checks only the named fields, for commands that need a
// subset of the configuration.
func (c *Config) ValidateFields(fields ...string) error {
	if err := validate.StructPartial(c, fields...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// envDuration accepts Go durations ("2s") or plain seconds ("2").
func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// OAuthClient returns the registered application credentials of provider.
func (c *Config) OAuthClient(provider string) oauth.ClientCredentials {
	switch provider {
	case oauth.ProviderFitbit:
		return oauth.ClientCredentials{ClientID: c.FitbitClientID, ClientSecret: c.FitbitClientSecret}
	case oauth.ProviderGoogle:
		return oauth.ClientCredentials{ClientID: c.GoogleClientID, ClientSecret: c.GoogleClientSecret}
	}
	return oauth.ClientCredentials{}
}
