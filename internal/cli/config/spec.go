package config

import (
	"time"

	"github.com/yndnr/devmesh-go/internal/infra/tlsroots"
)

// DefaultProfile is the profile used when none is selected.
const DefaultProfile = "default"

// CLIConfig is the configuration for devmesh-cli.
type CLIConfig struct {
	CurrentProfile string             `yaml:"current_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile holds connection defaults.
type Profile struct {
	Server  string          `yaml:"server"`
	Device  string          `yaml:"device,omitempty"`
	Store   string          `yaml:"store,omitempty"`
	Timeout time.Duration   `yaml:"timeout,omitempty"`
	Output  string          `yaml:"output,omitempty"`
	TLS     tlsroots.Config `yaml:"tls,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		CurrentProfile: DefaultProfile,
		Profiles: map[string]Profile{
			DefaultProfile: {
				Server:  "http://127.0.0.1:7380",
				Store:   "configuration",
				Timeout: 5 * time.Second,
				Output:  "table",
			},
		},
	}
}

// Current returns the selected profile, falling back to the defaults.
func (c *CLIConfig) Current() Profile {
	if p, ok := c.Profiles[c.CurrentProfile]; ok {
		return p
	}
	return Default().Profiles[DefaultProfile]
}
