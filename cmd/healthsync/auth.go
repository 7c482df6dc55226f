package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/healthsync/server/pkg/bootstrap"
	"github.com/healthsync/server/pkg/infrastructure/oauth"
)

var (
	authListen      string
	authCode        string
	authRedirectURL string
)

var authCmd = &cobra.Command{
	Use:       "auth fitbit|google",
	Short:     "Authorize healthsync with Fitbit or Google and store the tokens",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{oauth.ProviderFitbit, oauth.ProviderGoogle},
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := args[0]
		svc, err := setup(cmd)
		if err != nil {
			return err
		}
		defer finish(svc)

		fields := bootstrap.FitbitFields
		if provider == oauth.ProviderGoogle {
			fields = []string{"GoogleClientID", "GoogleClientSecret"}
		}
		if err := svc.Config.ValidateFields(fields...); err != nil {
			return err
		}

		creds := svc.Config.OAuthClient(provider)
		creds.RedirectURL = authRedirectURL
		oauthCfg, err := oauth.ProviderConfig(provider, creds)
		if err != nil {
			return err
		}

		state := uuid.NewString()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render("Open this URL and approve access:"))
		fmt.Fprintln(out, oauth.AuthCodeURL(provider, oauthCfg, state))

		code := authCode
		if code == "" {
			fmt.Fprintln(out, dimStyle.Render("Waiting for the redirect on "+authListen+" ..."))
			if code, err = waitForCode(cmd.Context(), authListen, state); err != nil {
				return err
			}
		}

		tok, err := oauth.ExchangeCode(cmd.Context(), provider, oauthCfg, svc.Credentials, code)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, okStyle.Render("Tokens saved."))
		fmt.Fprint(out, secretLines(provider, tok))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.Flags().StringVar(&authListen, "listen", "localhost:8080", "Address of the local callback server")
	authCmd.Flags().StringVar(&authCode, "code", "", "Authorization code copied from the redirect, skips the callback server")
	authCmd.Flags().StringVar(&authRedirectURL, "redirect-url", "http://localhost:8080/callback", "Redirect URL registered with the provider")
}

type callbackResult struct {
	code string
	err  error
}

// callbackRouter answers the provider redirect and reports the first result.
func callbackRouter(state string, results chan<- callbackResult) http.Handler {
	report := func(res callbackResult) {
		select {
		case results <- res:
		default:
		}
	}

	r := chi.NewRouter()
	r.Get("/callback", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if reason := q.Get("error"); reason != "" {
			http.Error(w, "Authorization failed: "+reason, http.StatusBadRequest)
			report(callbackResult{err: fmt.Errorf("authorization denied: %s", reason)})
			return
		}
		if q.Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Missing code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authorization received. You can close this window.")
		report(callbackResult{code: code})
	})
	return r
}

func waitForCode(ctx context.Context, addr, state string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", addr, err)
	}

	results := make(chan callbackResult, 1)
	srv := &http.Server{Handler: callbackRouter(state, results), ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-results:
		return res.code, res.err
	case err := <-serveErr:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// secretLines renders the credential-file lines of a token pair.
func secretLines(provider string, tok *oauth.Token) string {
	prefix := strings.ToUpper(provider)
	var b strings.Builder
	fmt.Fprintf(&b, "%s_ACCESS_TOKEN=%s\n", prefix, tok.AccessToken)
	fmt.Fprintf(&b, "%s_REFRESH_TOKEN=%s\n", prefix, tok.RefreshToken)
	if !tok.Expiry.IsZero() {
		fmt.Fprintf(&b, "%s_TOKEN_EXPIRY=%s\n", prefix, tok.Expiry.UTC().Format(time.RFC3339))
	}
	return b.String()
}
