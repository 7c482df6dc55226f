package bootstrap

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync/server/pkg/infrastructure/oauth"
)

func completeEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"CREDENTIAL_FILE":       filepath.Join(t.TempDir(), "missing.env"),
		"FITBIT_CLIENT_ID":      "fitbit-id",
		"FITBIT_CLIENT_SECRET":  "fitbit-secret",
		"GOOGLE_CLIENT_ID":      "google-id",
		"GOOGLE_CLIENT_SECRET":  "google-secret",
		"GOOGLE_API_KEY":        "gemini-key",
		"DRIVE_FOLDER_ID":       "folder",
		"NOTION_TOKEN":          "secret_x",
		"NOTION_DATABASE_ID":    "db",
		"HEALTHSYNC_TIMEZONE":   "",
		"FITBIT_CATEGORY_DELAY": "",
		"BACKFILL_DAY_DELAY":    "",
		"ENABLE_PUBLISH":        "",
		"SYNC_TOPIC":            "",
		"CREDENTIAL_STORE":      "",
		"SENTRY_DSN":            "",
		"GEMINI_MODEL":          "",
		"LOG_LEVEL":             "",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	completeEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultTimezone, cfg.Timezone)
	assert.Equal(t, "Europe/Zurich", cfg.Location.String())
	assert.Equal(t, DefaultGeminiModel, cfg.GeminiModel)
	assert.Equal(t, CredentialStoreFile, cfg.CredentialStore)
	assert.Equal(t, 2*time.Second, cfg.FitbitCategoryDelay)
	assert.Equal(t, DefaultDayDelay, cfg.DayDelay)
	assert.NoError(t, cfg.Validate(Sources{Fitbit: true, Food: true}))
}

func TestLoadConfig_CredentialFileDoesNotOverrideEnv(t *testing.T) {
	completeEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOTION_TOKEN=from-file\nHEALTHSYNC_TEST_ONLY=from-file\n"), 0o600))
	t.Setenv("CREDENTIAL_FILE", path)
	t.Setenv("HEALTHSYNC_TEST_ONLY", "")
	os.Unsetenv("HEALTHSYNC_TEST_ONLY")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "secret_x", cfg.NotionToken)
	assert.Equal(t, "from-file", os.Getenv("HEALTHSYNC_TEST_ONLY"))
}

func TestLoadConfig_Durations(t *testing.T) {
	completeEnv(t)
	t.Setenv("FITBIT_CATEGORY_DELAY", "0")
	t.Setenv("BACKFILL_DAY_DELAY", "1500ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.FitbitCategoryDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.DayDelay)

	t.Setenv("BACKFILL_DAY_DELAY", "soon")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "BACKFILL_DAY_DELAY")
}

func TestLoadConfig_InvalidTimezone(t *testing.T) {
	completeEnv(t)
	t.Setenv("HEALTHSYNC_TIMEZONE", "Mars/Olympus")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate_DisabledSourcesAreNotRequired(t *testing.T) {
	completeEnv(t)
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("DRIVE_FOLDER_ID", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Error(t, cfg.Validate(Sources{Fitbit: true, Food: true}))
	assert.NoError(t, cfg.Validate(Sources{Fitbit: true}))
}

func TestValidate_PublishNeedsTopic(t *testing.T) {
	completeEnv(t)
	t.Setenv("ENABLE_PUBLISH", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Error(t, cfg.Validate(Sources{}))

	cfg.SyncTopic = "healthsync-days"
	assert.NoError(t, cfg.Validate(Sources{}))
}

func TestValidateFields(t *testing.T) {
	cfg := &Config{NotionToken: "secret_x"}

	assert.Error(t, cfg.ValidateFields(NotionFields...))
	cfg.NotionDatabaseID = "db"
	assert.NoError(t, cfg.ValidateFields(NotionFields...))
}

func TestOAuthClient(t *testing.T) {
	cfg := &Config{FitbitClientID: "f", FitbitClientSecret: "fs", GoogleClientID: "g", GoogleClientSecret: "gs"}

	assert.Equal(t, oauth.ClientCredentials{ClientID: "f", ClientSecret: "fs"}, cfg.OAuthClient(oauth.ProviderFitbit))
	assert.Equal(t, oauth.ClientCredentials{ClientID: "g", ClientSecret: "gs"}, cfg.OAuthClient(oauth.ProviderGoogle))
	assert.Empty(t, cfg.OAuthClient(oauth.ProviderNotion))
}

func TestComponentHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&ComponentHandler{Handler: slog.NewJSONHandler(&buf, GetSlogHandlerOptions(slog.LevelInfo))})

	logger.With("component", "fitbit").Info("Fetched category", "category", "sleep")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "[fitbit] Fetched category", entry["message"])
	assert.Equal(t, "INFO", entry["severity"])
	assert.Equal(t, "fitbit", entry["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
