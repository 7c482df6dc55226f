package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/cobra"

	"github.com/healthsync/server/pkg/infrastructure/oauth"
	"github.com/healthsync/server/pkg/pipeline"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect or refresh the stored OAuth tokens",
}

var tokenRefreshCmd = &cobra.Command{
	Use:       "refresh fitbit|google",
	Short:     "Refresh a provider's token now and save the new pair",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{oauth.ProviderFitbit, oauth.ProviderGoogle},
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := setup(cmd)
		if err != nil {
			return err
		}
		defer finish(svc)

		source, err := pipeline.NewTokenSource(svc, args[0])
		if err != nil {
			return err
		}
		tok, err := source.ForceRefresh(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, okStyle.Render("Refreshed "+args[0]+" token."))
		fmt.Fprintln(out, formatTokenStatus(args[0], tok, time.Now()))
		return nil
	},
}

var tokenStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the stored access tokens are still valid",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := setup(cmd)
		if err != nil {
			return err
		}
		defer finish(svc)

		now := time.Now()
		for _, provider := range []string{oauth.ProviderFitbit, oauth.ProviderGoogle} {
			tok, err := svc.Credentials.Load(cmd.Context(), provider)
			if err != nil {
				return fmt.Errorf("load %s token: %w", provider, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatTokenStatus(provider, tok, now))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenRefreshCmd, tokenStatusCmd)
}

// accessTokenExpiry prefers the exp claim of a JWT access token (Fitbit) and
// falls back to the stored expiry.
func accessTokenExpiry(tok *oauth.Token) (time.Time, bool) {
	if exp, ok := jwtExpiry(tok.AccessToken); ok {
		return exp, true
	}
	return tok.Expiry, !tok.Expiry.IsZero()
}

// jwtExpiry reads the exp claim without verifying the signature.
func jwtExpiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0), true
	case json.Number:
		secs, err := exp.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(secs, 0), true
	}
	return time.Time{}, false
}
