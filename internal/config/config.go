// Package config loads the photo-frame configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration. Zero values fall back to the
// defaults applied by Load.
type Config struct {
	Storage struct {
		Dir       string `yaml:"dir"`        // storage root holding the images
		AudioFile string `yaml:"audio_file"` // fixed audio payload name
	} `yaml:"storage"`
	Slideshow struct {
		IntervalSeconds int `yaml:"interval_seconds"` // default advance interval
	} `yaml:"slideshow"`
	Web struct {
		Listen string `yaml:"listen"` // HTTP listen address
	} `yaml:"web"`
	Display struct {
		Width    int  `yaml:"width"`
		Height   int  `yaml:"height"`
		Headless bool `yaml:"headless"` // run without a window
	} `yaml:"display"`
	Button struct {
		Pin string `yaml:"pin"` // GPIO pin name; empty disables the button
	} `yaml:"button"`
	Settings struct {
		Path string `yaml:"path"` // settings database file
	} `yaml:"settings"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Storage.Dir = "/media/photoframe"
	cfg.Storage.AudioFile = "music.wav"
	cfg.Slideshow.IntervalSeconds = 10
	cfg.Web.Listen = ":8080"
	cfg.Display.Width = 320
	cfg.Display.Height = 240
	cfg.Settings.Path = defaultSettingsPath()
	cfg.Log.Level = "info"
	return cfg
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "photoframe.db"
	}
	return filepath.Join(dir, "photoframe", "photoframe.db")
}

// Load reads the configuration file at path, layered over the defaults. An
// empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Storage.Dir == "" {
		return fmt.Errorf("config: storage.dir is required")
	}
	if c.Slideshow.IntervalSeconds <= 0 {
		return fmt.Errorf("config: slideshow.interval_seconds must be positive")
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("config: display dimensions must be positive")
	}
	return nil
}
