package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Credentials struct{}

var _ CredentialConfig = Credentials{}

func (Credentials) GetCredentialBackend() string {
	return GetEnv("CREDENTIAL_BACKEND", BackendFile)
}

// GetCredentialFile defaults to <user config dir>/merchant-console/credentials.json
func (Credentials) GetCredentialFile() string {
	if f := os.Getenv("CREDENTIAL_FILE"); f != "" {
		return f
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "merchant-console", "credentials.json")
}

func (Credentials) GetCredentialTTL() time.Duration {
	ttl, err := time.ParseDuration(GetEnv("CREDENTIAL_TTL", ""))
	if err != nil || ttl <= 0 {
		return 7 * 24 * time.Hour // 7 days
	}
	return ttl
}
