package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/portal"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	kind, err := cfg.TransportKind()
	require.NoError(t, err)
	assert.Equal(t, TransportSSE, kind)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
agent:
  url: wss://agent.example.com/ws
  codec: msgpack
  token: secret
logging:
  level: debug
  format: json
portal:
  target_timeout: 3s
app:
  name: CRM
  prompts:
    - caption: Show my leads
      prompt: List the open leads assigned to me
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://agent.example.com/ws", cfg.Agent.URL)
	assert.Equal(t, "msgpack", cfg.Agent.Codec)
	assert.Equal(t, "secret", cfg.API.Token, "api token falls back to the agent token")
	assert.Equal(t, 3*time.Second, cfg.Portal.TargetTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.Len(t, cfg.App.Prompts, 1)
	assert.Equal(t, "Show my leads", cfg.App.Prompts[0].Caption)

	kind, err := cfg.TransportKind()
	require.NoError(t, err)
	assert.Equal(t, TransportWebSocket, kind)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", "agent:\n  url: http://file.example.com/agent\n")
	t.Setenv("SITEOP_AGENT_URL", "https://env.example.com/agent")
	t.Setenv("SITEOP_LOG_LEVEL", "warn")
	t.Setenv("SITEOP_TARGET_TIMEOUT", "250ms")
	t.Setenv("SITEOP_THREAD_STORE", "/tmp/threads")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/agent", cfg.Agent.URL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Portal.TargetTimeout)
	assert.Equal(t, "/tmp/threads", cfg.Storage.ThreadPath)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "agent: ["))
		assert.Error(t, err)
	})
	t.Run("bad timeout env", func(t *testing.T) {
		t.Setenv("SITEOP_TARGET_TIMEOUT", "soon")
		_, err := Load("")
		var cfgErr *core.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "portal.target_timeout", cfgErr.Field)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(c *Config)
		field string
	}{
		{"valid", func(c *Config) {}, ""},
		{"relative url", func(c *Config) { c.Agent.URL = "/agent" }, "agent.url"},
		{"unknown transport", func(c *Config) { c.Agent.Transport = "grpc" }, "agent.transport"},
		{"sse over ws", func(c *Config) {
			c.Agent.URL = "ws://localhost/ws"
			c.Agent.Transport = TransportSSE
		}, "agent.url"},
		{"websocket over http", func(c *Config) { c.Agent.Transport = TransportWebSocket }, "agent.url"},
		{"unknown codec", func(c *Config) { c.Agent.Codec = "xml" }, "agent.codec"},
		{"bad api url", func(c *Config) { c.API.URL = "localhost" }, "api.url"},
		{"empty api url", func(c *Config) { c.API.URL = "" }, ""},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"zero timeout", func(c *Config) { c.Portal.TargetTimeout = 0 }, "portal.target_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *core.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestAppContext(t *testing.T) {
	t.Run("from name", func(t *testing.T) {
		cfg := Default()
		cfg.App.Name = "CRM"
		ctx, err := cfg.AppContext()
		require.NoError(t, err)
		assert.Equal(t, portal.SchemaVersion, ctx.V)
		assert.Equal(t, "CRM", ctx.Site.Name)
	})

	t.Run("from file", func(t *testing.T) {
		path := writeFile(t, "context.yaml", `
site:
  name: CRM
  baseUrl: https://crm.example.com
nav:
  routes:
    - path: /leads
      title: Leads
`)
		cfg := Default()
		cfg.App.ContextFile = path
		ctx, err := cfg.AppContext()
		require.NoError(t, err)
		assert.Equal(t, portal.SchemaVersion, ctx.V)
		assert.Equal(t, "https://crm.example.com", ctx.Site.BaseURL)
		require.NotNil(t, ctx.Nav)
		require.Len(t, ctx.Nav.Routes, 1)
		assert.Equal(t, "/leads", ctx.Nav.Routes[0].Path)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAppContext(filepath.Join(t.TempDir(), "none.yaml"))
		assert.Error(t, err)
	})
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "debug"
	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.Equal(t, "debug", logger.GetLevel().String())
}
