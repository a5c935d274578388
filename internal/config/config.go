package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	CredentialConfig
	RedisConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetLogLevel() string
	GetEnv() string
	GetSandboxSecret() string
}

type APIConfig interface {
	GetAPIURL() string
}

type CredentialConfig interface {
	GetCredentialBackend() string
	GetCredentialFile() string
	GetCredentialTTL() time.Duration
}

type mainConfig struct {
	EnvVars
	API
	Credentials
	Redis
}

func New() Config {
	return mainConfig{}
}
