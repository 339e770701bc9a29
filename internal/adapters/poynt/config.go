package poynt

import "time"

// Config contains configuration for the Poynt API adapter
type Config struct {
	BaseURL        string // e.g. "https://services.poynt.net"
	BusinessID     string
	ApplicationID  string // urn:aid:... used as JWT issuer and subject
	APIVersion     string
	PrivateKeyPath string // secret manager path of the application's RSA key
	Timeout        time.Duration
	TokenTTL       time.Duration // lifetime of the self-signed JWT assertion
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://services.poynt.net",
		APIVersion: "1.2",
		Timeout:    10 * time.Second,
		TokenTTL:   5 * time.Minute,
	}
}
