package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetApplicationConfig_DefaultsAreValid(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("UPSTREAM__API_KEY", "test-upstream-key")
	defer os.Unsetenv("JWT_SECRET")
	defer os.Unsetenv("UPSTREAM__API_KEY")

	v, err := InitConfig()
	require.NoError(t, err, "InitConfig failed")

	cfg, err := GetApplicationConfig(v)
	require.NoError(t, err, "expected defaults plus required env vars to validate")

	assert.Equal(t, 10, cfg.Pool.Capacity, "expected default pool capacity 10")
	assert.Equal(t, 100, cfg.RateLimit.Capacity, "expected default rate limit capacity 100")
	assert.False(t, cfg.ToolRegistry.Enabled, "expected tool registry to default to disabled")
}

func TestGetApplicationConfig_MissingRequiredFieldFails(t *testing.T) {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("UPSTREAM__API_KEY")

	v, err := InitConfig()
	require.NoError(t, err, "InitConfig failed")

	_, err = GetApplicationConfig(v)
	assert.Error(t, err, "expected validation to fail without a jwt_secret")
}
