package config

import "time"

type TelemetryCfg struct {
	// Interval between two counter log lines. Values below one second are raised to one second.
	Interval time.Duration `yaml:"interval"`
}

func (cfg *TelemetryCfg) Enabled() bool {
	return cfg != nil
}
