package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"roomsheet/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// NewAuthClient builds the authenticated HTTP client for the Sheets API.
// Two credential shapes are supported: a service-account JSON key file, or
// a client id/secret plus a long-lived refresh token obtained once through
// the consent flow. The service account wins when both are configured.
func NewAuthClient(ctx context.Context, cfg config.GoogleConfig) (*http.Client, error) {
	if cfg.CredentialsFile != "" {
		credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read credentials file: %v", ErrAuth, err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("%w: parse credentials: %v", ErrAuth, err)
		}

		return jwtConfig.Client(ctx), nil
	}

	if cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.RefreshToken != "" {
		oauthConfig := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}
		token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
		return oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token)), nil
	}

	return nil, fmt.Errorf("%w: no credential configured", ErrAuth)
}

// ServiceAccountEmail extracts the client email from a service-account key
// file. Operators need it to share the spreadsheet with the account.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}
