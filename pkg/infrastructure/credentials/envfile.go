// Package credentials implements the token stores behind the OAuth token sources.
package credentials

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/healthsync/server/pkg/infrastructure/oauth"
)

// EnvFileStore keeps tokens in a dotenv file as <PROVIDER>_ACCESS_TOKEN,
// <PROVIDER>_REFRESH_TOKEN and <PROVIDER>_TOKEN_EXPIRY lines.
// Saving rewrites only those lines; every other line is preserved.
type EnvFileStore struct {
	Path string
	// LookupEnv is consulted for keys missing from the file (CI secrets).
	LookupEnv func(string) (string, bool)

	mu sync.Mutex
}

func NewEnvFileStore(path string) *EnvFileStore {
	return &EnvFileStore{Path: path, LookupEnv: os.LookupEnv}
}

func envKeys(provider string) (access, refresh, expiry string) {
	prefix := strings.ToUpper(strings.ReplaceAll(provider, "-", "_"))
	return prefix + "_ACCESS_TOKEN", prefix + "_REFRESH_TOKEN", prefix + "_TOKEN_EXPIRY"
}

func (s *EnvFileStore) Load(ctx context.Context, provider string) (*oauth.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := godotenv.Read(s.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}

	get := func(key string) string {
		if v, ok := values[key]; ok && v != "" {
			return v
		}
		if s.LookupEnv != nil {
			if v, ok := s.LookupEnv(key); ok {
				return v
			}
		}
		return ""
	}

	accessKey, refreshKey, expiryKey := envKeys(provider)
	token := &oauth.Token{
		AccessToken:  get(accessKey),
		RefreshToken: get(refreshKey),
	}
	if raw := get(expiryKey); raw != "" {
		expiry, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", expiryKey, raw, err)
		}
		token.Expiry = expiry
	}
	return token, nil
}

func (s *EnvFileStore) Save(ctx context.Context, provider string, token *oauth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accessKey, refreshKey, expiryKey := envKeys(provider)
	updates := map[string]string{
		accessKey:  token.AccessToken,
		refreshKey: token.RefreshToken,
	}
	order := []string{accessKey, refreshKey}
	if !token.Expiry.IsZero() {
		updates[expiryKey] = token.Expiry.UTC().Format(time.RFC3339)
		order = append(order, expiryKey)
	}

	content, err := os.ReadFile(s.Path)
	mode := fs.FileMode(0o600)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", s.Path, err)
		}
	} else if info, statErr := os.Stat(s.Path); statErr == nil {
		mode = info.Mode().Perm()
	}

	return writeFileAtomic(s.Path, ReplaceEnvLines(content, updates, order), mode)
}

// ReplaceEnvLines rewrites KEY=value lines in place and appends the keys
// that were not present, in the given order.
func ReplaceEnvLines(content []byte, updates map[string]string, order []string) []byte {
	var out bytes.Buffer
	seen := make(map[string]bool, len(updates))

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if key, ok := envLineKey(line); ok {
			if value, replace := updates[key]; replace {
				line = key + "=" + value
				seen[key] = true
			}
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}

	for _, key := range order {
		if !seen[key] {
			out.WriteString(key + "=" + updates[key] + "\n")
		}
	}
	return out.Bytes()
}

func envLineKey(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	trimmed = strings.TrimPrefix(trimmed, "export ")
	key, _, found := strings.Cut(trimmed, "=")
	if !found {
		return "", false
	}
	return strings.TrimSpace(key), true
}

func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
