package main

import (
	"fmt"
	"strings"

	concord4 "github.com/caarlos0/concord4-bridge"
	"github.com/caarlos0/env/v11"
	logp "github.com/charmbracelet/log"
)

type Config struct {
	DB       string `env:"DB"        envDefault:"./concord4.db"`
	HAPDB    string `env:"HAP_DB"    envDefault:"./db"`
	Address  string `env:"LISTEN"    envDefault:":9009"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	HomeKit HomeKitConfig `envPrefix:"HOMEKIT_"`
	MQTT    MQTTConfig    `envPrefix:"MQTT_"`
}

type HomeKitConfig struct {
	Pin string `env:"PIN" envDefault:"00102003"`
	// Code is typed on the panel when HomeKit arms or disarms. Without it
	// HomeKit is read only.
	Code string `env:"CODE"`
}

type MQTTConfig struct {
	Broker          string `env:"BROKER"`
	Username        string `env:"USERNAME"`
	Password        string `env:"PASSWORD"`
	ClientID        string `env:"CLIENT_ID"        envDefault:"concord4-bridge"`
	TopicPrefix     string `env:"TOPIC_PREFIX"     envDefault:"concord4"`
	DiscoveryPrefix string `env:"DISCOVERY_PREFIX" envDefault:"homeassistant"`
}

func parseConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf(
			"could not parse env:\n%s",
			strings.TrimPrefix(strings.ReplaceAll(err.Error(), "; ", "\n"), "env: "),
		)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if _, err := logp.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if c.HomeKit.Code != "" {
		if _, err := concord4.CodeToKeypresses(c.HomeKit.Code); err != nil {
			return fmt.Errorf("invalid HOMEKIT_CODE: %w", err)
		}
	}
	if !validPin(c.HomeKit.Pin) {
		return fmt.Errorf("invalid HOMEKIT_PIN: must have 8 digits")
	}
	return nil
}

func (c Config) level() logp.Level {
	level, _ := logp.ParseLevel(c.LogLevel)
	return level
}

func validPin(pin string) bool {
	if len(pin) != 8 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
