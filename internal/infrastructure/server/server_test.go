package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/TenantOS/backend/internal/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Root = t.TempDir()
	return cfg
}

func TestNewServerAppliesConfiguredLogLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Level = "debug"

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	defer srv.Close()

	assert.NotNil(t, srv.Handler())
}

func TestNewServerRejectsUnknownLogLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Level = "verbose"

	_, err := NewServer(cfg)
	assert.Error(t, err)
}
