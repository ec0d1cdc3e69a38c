package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type profile struct {
	Server   string
	Protocol string
	Timeout  time.Duration
	Token    string
	CAFile   string
}

func defaultProfile() profile {
	return profile{
		Server:   "http://localhost:9400",
		Protocol: "binary",
		Timeout:  5 * time.Second,
	}
}

type fileConfig struct {
	Server   string `toml:"server"`
	Protocol string `toml:"protocol"`
	Timeout  string `toml:"timeout"`
	Token    string `toml:"token"`
	CAFile   string `toml:"ca_file"`
}

// loadProfile overlays keys present in path onto the defaults.
func loadProfile(path string) (profile, error) {
	cfg := defaultProfile()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return profile{}, fmt.Errorf("load nsctl config: %w", err)
	}

	if meta.IsDefined("server") {
		if v := strings.TrimRight(strings.TrimSpace(raw.Server), "/"); v != "" {
			cfg.Server = v
		}
	}

	if meta.IsDefined("protocol") {
		cfg.Protocol = strings.TrimSpace(raw.Protocol)
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return profile{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if meta.IsDefined("token") {
		cfg.Token = strings.TrimSpace(raw.Token)
	}

	if meta.IsDefined("ca_file") {
		cfg.CAFile = strings.TrimSpace(raw.CAFile)
	}

	return cfg, nil
}
