package config

import "testing"

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"cpu backend", func(c *Config) { c.Backend = "cpu" }, false},
		{"fpga backend", func(c *Config) { c.Backend = "fpga" }, false},
		{"uppercase backend", func(c *Config) { c.Backend = "FPGA" }, false},
		{"unknown backend", func(c *Config) { c.Backend = "tpu" }, true},
		{"negative port", func(c *Config) { c.AccelPort = -1 }, true},
		{"port too large", func(c *Config) { c.AccelPort = 70000 }, true},
		{"fpga without host", func(c *Config) { c.Backend = "fpga"; c.AccelHost = "" }, true},
		{"json log format", func(c *Config) { c.LogFormat = "json" }, false},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
