package config

import "strings"

const apiURLEnvVar = "MERCHANT_API_URL"

type API struct{}

var _ APIConfig = API{}

// GetAPIURL returns the backend base URL including the version prefix,
// e.g. "http://localhost:8000/api/v1". A trailing slash is removed.
func (API) GetAPIURL() string {
	return strings.TrimRight(GetEnv(apiURLEnvVar, "http://localhost:8000/api/v1"), "/")
}
