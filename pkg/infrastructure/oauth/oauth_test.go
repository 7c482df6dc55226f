package oauth_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync/server/pkg/domain/health"
	httputil "github.com/healthsync/server/pkg/infrastructure/http"
	"github.com/healthsync/server/pkg/infrastructure/oauth"
	"github.com/healthsync/server/pkg/pacing"
	"github.com/healthsync/server/pkg/testing/mocks"
)

// tokenEndpoint fakes the provider token endpoint, handing out numbered access tokens.
func tokenEndpoint(t *testing.T, status int) (*httptest.Server, *int32) {
	t.Helper()
	var refreshes int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		if user, pass, ok := r.BasicAuth(); ok {
			assert.Equal(t, "client-id", user)
			assert.Equal(t, "client-secret", pass)
		}
		n := atomic.AddInt32(&refreshes, 1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			io.WriteString(w, `{"errors":[{"errorType":"invalid_grant"}]}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"fresh-`+string(rune('0'+n))+`","refresh_token":"rotated","expires_in":28800,"token_type":"Bearer"}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &refreshes
}

func fitbitSource(t *testing.T, store oauth.CredentialStore, tokenURL string) *oauth.StoreTokenSource {
	t.Helper()
	cfg, err := oauth.ProviderConfig(oauth.ProviderFitbit, oauth.ClientCredentials{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     tokenURL,
	})
	require.NoError(t, err)
	return oauth.NewStoreTokenSource(store, oauth.ProviderFitbit, cfg, nil)
}

func TestStoreTokenSource_ReturnsStoredToken(t *testing.T) {
	srv, refreshes := tokenEndpoint(t, http.StatusOK)
	store := mocks.NewMemoryCredentialStore()
	store.Tokens["fitbit"] = &oauth.Token{AccessToken: "stored", RefreshToken: "r1"}

	tok, err := fitbitSource(t, store, srv.URL).Token(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "stored", tok.AccessToken)
	assert.EqualValues(t, 0, atomic.LoadInt32(refreshes))
}

func TestStoreTokenSource_RefreshesExpiredAndPersists(t *testing.T) {
	srv, refreshes := tokenEndpoint(t, http.StatusOK)
	store := mocks.NewMemoryCredentialStore()
	store.Tokens["fitbit"] = &oauth.Token{
		AccessToken:  "old",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(30 * time.Second),
	}

	tok, err := fitbitSource(t, store, srv.URL).Token(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh-1", tok.AccessToken)
	assert.EqualValues(t, 1, atomic.LoadInt32(refreshes))
	assert.Equal(t, "fresh-1", store.Tokens["fitbit"].AccessToken)
	assert.Equal(t, "rotated", store.Tokens["fitbit"].RefreshToken)
}

func TestStoreTokenSource_MissingRefreshToken(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()

	_, err := fitbitSource(t, store, "http://127.0.0.1:0").ForceRefresh(context.Background())

	var authErr *health.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "fitbit", authErr.Provider)
}

func TestStoreTokenSource_RefreshRejected(t *testing.T) {
	srv, _ := tokenEndpoint(t, http.StatusBadRequest)
	store := mocks.NewMemoryCredentialStore()
	store.Tokens["fitbit"] = &oauth.Token{AccessToken: "old", RefreshToken: "revoked"}

	_, err := fitbitSource(t, store, srv.URL).ForceRefresh(context.Background())

	assert.True(t, health.IsFatal(err))
	assert.Equal(t, "old", store.Tokens["fitbit"].AccessToken, "store must be untouched on failure")
}

func TestTransport_RefreshesOn401AndRetriesOnce(t *testing.T) {
	tokenSrv, refreshes := tokenEndpoint(t, http.StatusOK)
	store := mocks.NewMemoryCredentialStore()
	store.Tokens["fitbit"] = &oauth.Token{AccessToken: "expired", RefreshToken: "r1"}

	var apiCalls int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&apiCalls, 1)
		if r.Header.Get("Authorization") != "Bearer fresh-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer api.Close()

	client := oauth.NewClient(fitbitSource(t, store, tokenSrv.URL), httputil.DefaultRetryPolicy(), nil, nil)
	resp, err := client.Post(api.URL, "text/plain", strings.NewReader("payload"))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "payload", string(body))
	assert.EqualValues(t, 2, atomic.LoadInt32(&apiCalls))
	assert.EqualValues(t, 1, atomic.LoadInt32(refreshes))
}

func TestTransport_SecondUnauthorizedIsReturned(t *testing.T) {
	tokenSrv, refreshes := tokenEndpoint(t, http.StatusOK)
	store := mocks.NewMemoryCredentialStore()
	store.Tokens["fitbit"] = &oauth.Token{AccessToken: "expired", RefreshToken: "r1"}

	var apiCalls int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&apiCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer api.Close()

	rec := &pacing.Recorder{}
	policy := httputil.DefaultRetryPolicy()
	policy.Sleep = rec.Sleep
	client := oauth.NewClient(fitbitSource(t, store, tokenSrv.URL), policy, nil, nil)

	resp, err := client.Get(api.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 2, atomic.LoadInt32(&apiCalls))
	assert.EqualValues(t, 1, atomic.LoadInt32(refreshes))
	assert.Empty(t, rec.Delays)
}

func TestStaticTokenSource_CannotRefresh(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer api.Close()

	client := oauth.NewStaticClient("secret_abc", httputil.DefaultRetryPolicy(), nil, nil)
	_, err := client.Get(api.URL)

	assert.True(t, health.IsFatal(err))
}

func TestProviderConfig(t *testing.T) {
	cfg, err := oauth.ProviderConfig(oauth.ProviderGoogle, oauth.ClientCredentials{ClientID: "id", RedirectURL: "http://localhost:8080"})
	require.NoError(t, err)

	url := oauth.AuthCodeURL(oauth.ProviderGoogle, cfg, "state-1")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "drive.readonly")

	_, err = oauth.ProviderConfig("strava", oauth.ClientCredentials{})
	assert.Error(t, err)
}
