package utils

import "strings"

// RapidaEnvironment identifies the deployment environment a process is running in.
type RapidaEnvironment int

const (
	DEVELOPMENT RapidaEnvironment = iota
	PRODUCTION
)

// Get returns the lower-case string form of the environment.
func (e RapidaEnvironment) Get() string {
	switch e {
	case PRODUCTION:
		return "production"
	default:
		return "development"
	}
}

// FromEnvironmentStr parses an environment name, case-insensitively, defaulting
// to DEVELOPMENT for anything unrecognized or empty.
func FromEnvironmentStr(s string) RapidaEnvironment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production":
		return PRODUCTION
	default:
		return DEVELOPMENT
	}
}
