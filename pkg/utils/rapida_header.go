package utils

// HTTP header name constants. No relay code references them; the frontend
// names the Authorization and X-Api-Key headers directly.
const (
	HEADER_API_KEY         = "X-Api-Key"
	HEADER_AUTH_KEY        = "Authorization"
	HEADER_SOURCE_KEY      = "X-Source"
	HEADER_ENVIRONMENT_KEY = "X-Environment"
	HEADER_REGION_KEY      = "X-Region"
)
