package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const defaultChannel = "kioskctl/screen_lock"

// Config is read from $XDG_CONFIG_HOME/kioskctl/config.json. Every field is
// optional.
type Config struct {
	Channel              string   `json:"channel"`
	AppName              string   `json:"app_name"`
	Reason               string   `json:"reason"`
	InhibitWhat          []string `json:"inhibit_what"`
	RequireActiveSession bool     `json:"require_active_session"`
	LogLevel             string   `json:"log_level"`
}

var validInhibitWhat = map[string]bool{
	"shutdown":             true,
	"sleep":                true,
	"idle":                 true,
	"handle-power-key":     true,
	"handle-suspend-key":   true,
	"handle-hibernate-key": true,
	"handle-lid-switch":    true,
}

func defaultConfig() Config {
	return Config{
		Channel:              defaultChannel,
		AppName:              "kioskctl",
		Reason:               "kiosk lock active",
		InhibitWhat:          []string{"idle", "sleep", "handle-power-key", "handle-suspend-key", "handle-lid-switch"},
		RequireActiveSession: true,
		LogLevel:             "info",
	}
}

func configPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "kioskctl", "config.json")
}

// loadConfig overlays the config file on the defaults. A missing file is not
// an error.
func loadConfig() (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(configPath())
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config")
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Channel == "" {
		return errors.New("config: channel must not be empty")
	}
	if len(c.InhibitWhat) == 0 {
		return errors.New("config: inhibit_what must name at least one lock")
	}
	for _, w := range c.InhibitWhat {
		if !validInhibitWhat[w] {
			return errors.Errorf("config: unknown inhibit lock %q", w)
		}
	}
	return nil
}
