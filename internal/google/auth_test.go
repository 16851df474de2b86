package google

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"roomsheet/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthClientNoCredentials(t *testing.T) {
	_, err := NewAuthClient(context.Background(), config.GoogleConfig{})
	assert.ErrorIs(t, err, ErrAuth)
}

func TestNewAuthClientMissingFile(t *testing.T) {
	cfg := config.GoogleConfig{CredentialsFile: "/nonexistent/creds.json"}
	_, err := NewAuthClient(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestNewAuthClientMalformedKey(t *testing.T) {
	tmpDir := t.TempDir()
	credsPath := filepath.Join(tmpDir, "creds.json")
	require.NoError(t, os.WriteFile(credsPath, []byte("{not json"), 0o600))

	_, err := NewAuthClient(context.Background(), config.GoogleConfig{CredentialsFile: credsPath})
	assert.ErrorIs(t, err, ErrAuth)
}

func TestNewAuthClientRefreshToken(t *testing.T) {
	cfg := config.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RefreshToken: "refresh-token",
	}
	client, err := NewAuthClient(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestServiceAccountEmail(t *testing.T) {
	tmpDir := t.TempDir()
	credsPath := filepath.Join(tmpDir, "creds.json")
	require.NoError(t, os.WriteFile(credsPath, []byte(`{"client_email":"bot@project.iam.gserviceaccount.com"}`), 0o600))

	email, err := ServiceAccountEmail(credsPath)
	require.NoError(t, err)
	assert.Equal(t, "bot@project.iam.gserviceaccount.com", email)
}
