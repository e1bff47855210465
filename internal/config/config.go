// Package config provides configuration management for the Flight SQL OAuth
// client. It handles loading and parsing YAML configuration files and provides
// structured access to the OAuth flow settings consumed by the token providers.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the client configuration, loaded from a YAML file.
type Config struct {
	// OAuth holds the settings that select and parameterize the token
	// acquisition flow.
	OAuth OAuthConfig `yaml:"oauth"`

	// ProxyURL is the URL of an optional proxy server to use for outbound
	// requests to the identity provider or the OAuth server.
	ProxyURL string `yaml:"proxy-url"`

	// Debug enables or disables debug-level logging.
	Debug bool `yaml:"debug"`

	// LogToFile switches log output from stdout to a rotating log file.
	LogToFile bool `yaml:"log-to-file"`
}

// OAuthConfig holds the connection-time OAuth settings. Which fields are
// required depends on the selected flow; see the auth package resolver.
type OAuthConfig struct {
	// Flow selects the token acquisition flow: "authorization_code" for the
	// browser PKCE flow, or "server_side" for the delegated flow where the
	// Flight server performs the code exchange.
	Flow string `yaml:"flow"`

	// Issuer is the OIDC issuer base URL used to discover the authorization
	// and token endpoints when they are not set explicitly.
	Issuer string `yaml:"issuer"`

	// AuthorizationURL is the identity provider's authorization endpoint.
	AuthorizationURL string `yaml:"authorization-url"`

	// TokenURL is the identity provider's token endpoint.
	TokenURL string `yaml:"token-url"`

	// ClientID is the OAuth client identifier registered with the identity
	// provider. Required for the authorization_code flow.
	ClientID string `yaml:"client-id"`

	// ClientSecret is an optional client secret. Some identity providers
	// (e.g. Google) require one even for desktop applications.
	ClientSecret string `yaml:"client-secret"`

	// Scope is an optional space-separated list of scopes to request.
	Scope string `yaml:"scope"`

	// ServerBaseURL is the base URL of the OAuth HTTP server companion to the
	// Flight server (e.g. https://host:31339). Required for the server_side
	// flow unless the server advertises it during the discovery handshake.
	ServerBaseURL string `yaml:"server-base-url"`

	// DisableCertVerification skips TLS certificate verification on requests
	// to the server-side OAuth endpoint. Development convenience for
	// self-signed certificates; never enable in production.
	DisableCertVerification bool `yaml:"disable-certificate-verification"`
}

// LoadConfig reads a YAML configuration file from the given path and
// unmarshals it into a Config struct.
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}
