package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AllFields(t *testing.T) {
	dir := t.TempDir()
	content := `output:
  directory: reports
  formats: [json, excel, html]

server:
  url: https://tableau.example.com
  site: analytics
  api_version: "3.22"

verbose: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "reports", cfg.Output.Directory)
	assert.Equal(t, []string{"json", "excel", "html"}, cfg.Output.Formats)
	assert.Equal(t, "https://tableau.example.com", cfg.Server.URL)
	assert.Equal(t, "analytics", cfg.Server.Site)
	assert.Equal(t, "3.22", cfg.Server.APIVersion)
	assert.True(t, cfg.Verbose)
}

func TestLoad_MinimalYAMLKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `server:
  url: https://tableau.example.com
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://tableau.example.com", cfg.Server.URL)
	assert.Equal(t, "3.21", cfg.Server.APIVersion)
	assert.Equal(t, ".", cfg.Output.Directory)
	assert.Equal(t, []string{"json"}, cfg.Output.Formats)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrConfigNotFound), "expected ErrConfigNotFound, got: %v", err)
	assert.Nil(t, cfg)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{{invalid"), 0644))

	cfg, err := Load(dir)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadCredentials_FromDotEnv(t *testing.T) {
	dir := t.TempDir()
	content := EnvTokenName + "=ci-token\n" + EnvTokenSecret + "=s3cret\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0600))

	// godotenv never overrides variables already present in the
	// environment, so make sure these are absent. t.Setenv registers the
	// restore; Unsetenv clears the value for the test body.
	t.Setenv(EnvTokenName, "")
	t.Setenv(EnvTokenSecret, "")
	os.Unsetenv(EnvTokenName)
	os.Unsetenv(EnvTokenSecret)

	creds, err := LoadCredentials(dir)
	require.NoError(t, err)

	assert.Equal(t, "ci-token", creds.TokenName)
	assert.Equal(t, "s3cret", creds.TokenSecret)
}

func TestLoadCredentials_EnvironmentWins(t *testing.T) {
	t.Setenv(EnvTokenName, "from-env")
	t.Setenv(EnvTokenSecret, "env-secret")

	creds, err := LoadCredentials(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "from-env", creds.TokenName)
	assert.Equal(t, "env-secret", creds.TokenSecret)
}
