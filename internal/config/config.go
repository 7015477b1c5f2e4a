// Package config provides configuration management for the Copilot CLI tools.
// It handles loading and parsing the optional YAML configuration file and provides
// structured access to application settings including proxy configuration, logging
// behavior, and overrides for the reference client identity.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values matching the reference Copilot Chat client.
const (
	// DefaultClientID is the OAuth client identifier of the Copilot Chat application.
	DefaultClientID = "Iv1.b507a08c87ecfe98"
	// DefaultOAuthScope defines the permissions requested during the device flow.
	DefaultOAuthScope = "read:user"
	// DefaultUserAgent is sent on every outbound request.
	DefaultUserAgent = "GitHubCopilotChat/0.26.7"
	// DefaultEditorVersion identifies the editor the reference client embeds in.
	DefaultEditorVersion = "vscode/1.99.3"
	// DefaultEditorPluginVersion identifies the Copilot Chat plugin build.
	DefaultEditorPluginVersion = "copilot-chat/0.26.7"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	// Supports http, https and socks5 schemes.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url"`

	// RequestLog enables debug-level logging of outbound request metadata.
	RequestLog bool `yaml:"request-log" json:"request-log"`

	// LoggingToFile redirects log output to a rotating file under the logs directory
	// instead of stderr.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// ClientID overrides the OAuth client identifier used for the device flow.
	ClientID string `yaml:"client-id" json:"client-id"`

	// UserAgent overrides the User-Agent header sent on outbound requests.
	UserAgent string `yaml:"user-agent" json:"user-agent"`

	// EditorVersion overrides the Editor-Version header.
	EditorVersion string `yaml:"editor-version" json:"editor-version"`

	// EditorPluginVersion overrides the Editor-Plugin-Version header.
	EditorPluginVersion string `yaml:"editor-plugin-version" json:"editor-plugin-version"`
}

// Default returns a configuration populated with the reference client defaults.
func Default() *Config {
	return &Config{
		ClientID:            DefaultClientID,
		UserAgent:           DefaultUserAgent,
		EditorVersion:       DefaultEditorVersion,
		EditorPluginVersion: DefaultEditorPluginVersion,
	}
}

// LoadConfig reads the YAML configuration from the given path. An empty path or a
// missing file yields the defaults; a present but malformed file is an error.
func LoadConfig(configFile string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(configFile) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", configFile, err)
	}

	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", configFile, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills fields the YAML file left empty.
func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ClientID) == "" {
		c.ClientID = DefaultClientID
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = DefaultUserAgent
	}
	if strings.TrimSpace(c.EditorVersion) == "" {
		c.EditorVersion = DefaultEditorVersion
	}
	if strings.TrimSpace(c.EditorPluginVersion) == "" {
		c.EditorPluginVersion = DefaultEditorPluginVersion
	}
}
