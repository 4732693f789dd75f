package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GSejas/health-watch-sub002/internal/bootstrap"
)

const testConfig = `
channels:
  - id: web
    name: Web
    kind: http-like
    params:
      url: http://localhost:1/health
    intervalSec: 30
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	return path
}

func TestInitialize_BuildsRunnableApp(t *testing.T) {
	configPath := writeTestConfig(t)
	workspaceDir := t.TempDir()

	app, err := bootstrap.Initialize(configPath, workspaceDir)
	require.NoError(t, err)
	require.NotNil(t, app)
	require.NotNil(t, app.Engine)
	defer func() { _ = app.Store.Close() }()

	assert.Equal(t, "web", app.Config.Channels[0].ID)
}

func TestInitialize_InvalidConfigReturnsConfigurationError(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("channels:\n  - kind: http-like\n"), 0o644))

	_, err := bootstrap.Initialize(configPath, t.TempDir())
	require.Error(t, err)
}

func TestRun_ShutsDownCleanlyOnContextCancel(t *testing.T) {
	configPath := writeTestConfig(t)
	workspaceDir := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	code := bootstrap.Run(ctx, configPath, workspaceDir)
	assert.Equal(t, bootstrap.ExitClean, code)
}

func TestRun_ConfigurationInvalidExitCode(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("channels:\n  - kind: http-like\n"), 0o644))

	code := bootstrap.Run(context.Background(), configPath, t.TempDir())
	assert.Equal(t, bootstrap.ExitConfigurationInvalid, code)
}
