package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/merchant-console/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, v := range []string{"PORT", "MERCHANT_API_URL", "CREDENTIAL_BACKEND", "CREDENTIAL_TTL", "REDIS_DB", "ENV"} {
		t.Setenv(v, "")
	}
	c := config.New()

	require.Equal(t, ":8000", c.GetPort())
	require.Equal(t, "http://localhost:8000/api/v1", c.GetAPIURL())
	require.Equal(t, config.BackendFile, c.GetCredentialBackend())
	require.Equal(t, 7*24*time.Hour, c.GetCredentialTTL())
	require.Equal(t, 0, c.GetRedisDB())
	require.Equal(t, "DEV", c.GetEnv())
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", ":9000")
	t.Setenv("MERCHANT_API_URL", "https://api.example.com/api/v1/")
	t.Setenv("CREDENTIAL_TTL", "48h")
	t.Setenv("CREDENTIAL_FILE", "/tmp/creds.json")
	t.Setenv("REDIS_DB", "3")
	c := config.New()

	require.Equal(t, ":9000", c.GetPort())
	require.Equal(t, "https://api.example.com/api/v1", c.GetAPIURL())
	require.Equal(t, 48*time.Hour, c.GetCredentialTTL())
	require.Equal(t, "/tmp/creds.json", c.GetCredentialFile())
	require.Equal(t, 3, c.GetRedisDB())
}

func TestInvalidTTLFallsBack(t *testing.T) {
	t.Setenv("CREDENTIAL_TTL", "soon")
	require.Equal(t, 7*24*time.Hour, config.New().GetCredentialTTL())
}
