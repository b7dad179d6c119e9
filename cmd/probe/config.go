package main

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerAddr  string `envconfig:"SERVER_ADDR" default:"localhost:3001"`
	DisplayName string `envconfig:"DISPLAY_NAME" default:"probe"`
	// PROBE_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"PROBE_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
