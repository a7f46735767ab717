// Package config carries the runtime configuration of the kernel
// library: backend selection, accelerator endpoint, and logging.
package config

import (
	"fmt"
	"strings"
)

type Config struct {
	// Backend is "cpu", "fpga", or "" for the build-tag default.
	Backend string

	// Accelerator bridge endpoint, used by the fpga backend.
	AccelHost string
	AccelPort int

	LogLevel  string
	LogFormat string
}

// Default returns the configuration used when no flags are given.
func Default() *Config {
	return &Config{
		Backend:   "",
		AccelHost: "localhost",
		AccelPort: 3000,
		LogLevel:  "info",
		LogFormat: "console",
	}
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "", "cpu", "fpga":
	default:
		return fmt.Errorf("invalid backend: %q (must be cpu or fpga)", c.Backend)
	}
	if c.AccelPort < 0 || c.AccelPort > 65535 {
		return fmt.Errorf("invalid accelerator port: %d", c.AccelPort)
	}
	if strings.ToLower(c.Backend) == "fpga" && c.AccelHost == "" {
		return fmt.Errorf("fpga backend requires an accelerator host")
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log format: %q (must be console or json)", c.LogFormat)
	}
	return nil
}
