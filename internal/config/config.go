// Package config loads the layerboard configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for a layerboard process.
type Config struct {
	Room struct {
		Name      string `yaml:"name"`
		Port      int    `yaml:"port"`
		Discovery bool   `yaml:"discovery"`
	} `yaml:"room"`
	Canvas struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"canvas"`
	Export struct {
		PNG string `yaml:"png"`
		PDF string `yaml:"pdf"`
	} `yaml:"export"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var c Config
	c.Room.Name = "layerboard"
	c.Room.Port = 8888
	c.Room.Discovery = true
	c.Canvas.Width = 1280
	c.Canvas.Height = 800
	c.Export.PNG = "board.png"
	c.Export.PDF = "board.pdf"
	return c
}

// Load reads a YAML config file over the defaults. An empty path
// yields the defaults unchanged.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.Room.Port <= 0 || c.Room.Port > 65535 {
		return fmt.Errorf("invalid room port %d", c.Room.Port)
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("invalid canvas size %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	return nil
}
