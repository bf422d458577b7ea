// Package config loads the CLI and devserver configuration from an optional
// YAML file, a .env file and SITEOP_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/site-operator/go-sdk/internal/logging"
	"github.com/site-operator/go-sdk/pkg/chat"
	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/encoding"
	"github.com/site-operator/go-sdk/pkg/portal"
)

// Transport kinds.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// Config is the complete configuration.
type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Portal    PortalConfig    `yaml:"portal"`
	App       AppConfig       `yaml:"app"`
	DevServer DevServerConfig `yaml:"devserver"`
}

// AgentConfig selects the agent endpoint.
type AgentConfig struct {
	URL string `yaml:"url"`
	// Transport is derived from the URL scheme when empty.
	Transport string `yaml:"transport"`
	Codec     string `yaml:"codec"`
	Token     string `yaml:"token"`
}

// APIConfig is the conversations API.
type APIConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// StorageConfig locates the thread store. An empty path keeps the active
// thread in memory.
type StorageConfig struct {
	ThreadPath string `yaml:"thread_path"`
}

// LoggingConfig configures logrus.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PortalConfig configures the portal bridge.
type PortalConfig struct {
	TargetTimeout time.Duration `yaml:"target_timeout"`
}

// AppConfig describes the host application the CLI stands in for.
type AppConfig struct {
	Name        string        `yaml:"name"`
	ContextFile string        `yaml:"context_file"`
	Prompts     []chat.Prompt `yaml:"prompts"`
}

// DevServerConfig configures the development backend.
type DevServerConfig struct {
	Address string `yaml:"address"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Agent:     AgentConfig{URL: "http://localhost:8080/agent", Codec: "json"},
		API:       APIConfig{URL: "http://localhost:8080"},
		Logging:   LoggingConfig{Level: "info", Format: logging.FormatText},
		Portal:    PortalConfig{TargetTimeout: portal.DefaultTargetTimeout},
		App:       AppConfig{Name: "site-operator"},
		DevServer: DevServerConfig{Address: ":8080"},
	}
}

// Load reads path (skipped when empty), then .env, then the environment,
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// A missing .env file is fine.
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	envString("SITEOP_AGENT_URL", &c.Agent.URL)
	envString("SITEOP_TRANSPORT", &c.Agent.Transport)
	envString("SITEOP_CODEC", &c.Agent.Codec)
	envString("SITEOP_TOKEN", &c.Agent.Token)
	envString("SITEOP_API_URL", &c.API.URL)
	envString("SITEOP_API_TOKEN", &c.API.Token)
	envString("SITEOP_THREAD_STORE", &c.Storage.ThreadPath)
	envString("SITEOP_LOG_LEVEL", &c.Logging.Level)
	envString("SITEOP_LOG_FORMAT", &c.Logging.Format)
	envString("SITEOP_APP_NAME", &c.App.Name)
	envString("SITEOP_APP_CONTEXT", &c.App.ContextFile)
	envString("SITEOP_DEVSERVER_ADDR", &c.DevServer.Address)

	if v := os.Getenv("SITEOP_TARGET_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &core.ConfigError{Field: "portal.target_timeout", Value: v, Err: err}
		}
		c.Portal.TargetTimeout = d
	}
	if c.API.Token == "" {
		c.API.Token = c.Agent.Token
	}
	return nil
}

func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// Validate checks every field and returns the first *core.ConfigError.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Agent.URL)
	if err != nil || u.Host == "" {
		return &core.ConfigError{Field: "agent.url", Value: c.Agent.URL, Err: errors.New("must be an absolute URL")}
	}
	transport, err := c.TransportKind()
	if err != nil {
		return err
	}
	scheme := strings.ToLower(u.Scheme)
	switch {
	case transport == TransportSSE && scheme != "http" && scheme != "https":
		return &core.ConfigError{Field: "agent.url", Value: c.Agent.URL, Err: errors.New("sse needs an http(s) URL")}
	case transport == TransportWebSocket && scheme != "ws" && scheme != "wss":
		return &core.ConfigError{Field: "agent.url", Value: c.Agent.URL, Err: errors.New("websocket needs a ws(s) URL")}
	}
	if _, err := encoding.ForName(c.Agent.Codec); err != nil {
		return &core.ConfigError{Field: "agent.codec", Value: c.Agent.Codec, Err: err}
	}
	if c.API.URL != "" {
		if u, err := url.Parse(c.API.URL); err != nil || u.Host == "" {
			return &core.ConfigError{Field: "api.url", Value: c.API.URL, Err: errors.New("must be an absolute URL")}
		}
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return &core.ConfigError{Field: "logging.level", Value: c.Logging.Level, Err: err}
	}
	switch strings.ToLower(c.Logging.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return &core.ConfigError{Field: "logging.format", Value: c.Logging.Format, Err: errors.New("must be text or json")}
	}
	if c.Portal.TargetTimeout <= 0 {
		return &core.ConfigError{Field: "portal.target_timeout", Value: c.Portal.TargetTimeout, Err: errors.New("must be positive")}
	}
	return nil
}

// TransportKind returns the configured transport, derived from the agent URL
// scheme when unset.
func (c *Config) TransportKind() (string, error) {
	switch strings.ToLower(c.Agent.Transport) {
	case TransportSSE:
		return TransportSSE, nil
	case TransportWebSocket, "ws":
		return TransportWebSocket, nil
	case "":
	default:
		return "", &core.ConfigError{Field: "agent.transport", Value: c.Agent.Transport, Err: errors.New("must be sse or websocket")}
	}
	u, err := url.Parse(c.Agent.URL)
	if err != nil {
		return "", &core.ConfigError{Field: "agent.url", Value: c.Agent.URL, Err: err}
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
		return TransportWebSocket, nil
	default:
		return TransportSSE, nil
	}
}

// Logger builds the logger described by the logging section.
func (c *Config) Logger() (*logrus.Logger, error) {
	return logging.New(c.Logging.Level, c.Logging.Format)
}

// AppContext loads the host application context from App.ContextFile. With
// no file, a context naming App.Name is returned.
func (c *Config) AppContext() (portal.AppContext, error) {
	if c.App.ContextFile == "" {
		return portal.AppContext{V: portal.SchemaVersion, Site: portal.Site{Name: c.App.Name}}, nil
	}
	return LoadAppContext(c.App.ContextFile)
}

// LoadAppContext reads an AppContext from a YAML or JSON file.
func LoadAppContext(path string) (portal.AppContext, error) {
	var out portal.AppContext
	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read app context: %w", err)
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("parse app context %s: %w", path, err)
	}
	if out.V == "" {
		out.V = portal.SchemaVersion
	}
	return out, nil
}
