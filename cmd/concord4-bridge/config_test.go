package main

import (
	"testing"

	"github.com/caarlos0/env/v11"
	logp "github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)
	require.Equal(t, Config{
		DB:       "./concord4.db",
		HAPDB:    "./db",
		Address:  ":9009",
		LogLevel: "info",
		HomeKit: HomeKitConfig{
			Pin: "00102003",
		},
		MQTT: MQTTConfig{
			ClientID:        "concord4-bridge",
			TopicPrefix:     "concord4",
			DiscoveryPrefix: "homeassistant",
		},
	}, cfg)
	require.Equal(t, logp.InfoLevel, cfg.level())
}

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig(env.Options{Environment: map[string]string{
		"DB":                "/data/entries.db",
		"LOG_LEVEL":         "debug",
		"HOMEKIT_CODE":      "1234",
		"HOMEKIT_PIN":       "11122333",
		"MQTT_BROKER":       "tcp://localhost:1883",
		"MQTT_USERNAME":     "user",
		"MQTT_TOPIC_PREFIX": "alarm",
	}})
	require.NoError(t, err)
	require.Equal(t, "/data/entries.db", cfg.DB)
	require.Equal(t, logp.DebugLevel, cfg.level())
	require.Equal(t, HomeKitConfig{Pin: "11122333", Code: "1234"}, cfg.HomeKit)
	require.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	require.Equal(t, "user", cfg.MQTT.Username)
	require.Equal(t, "alarm", cfg.MQTT.TopicPrefix)
}

func TestParseConfigInvalid(t *testing.T) {
	for name, environment := range map[string]map[string]string{
		"log level":     {"LOG_LEVEL": "loud"},
		"code":          {"HOMEKIT_CODE": "12ab"},
		"pin":           {"HOMEKIT_PIN": "123"},
		"pin non digit": {"HOMEKIT_PIN": "1234567a"},
		"pin dashes":    {"HOMEKIT_PIN": "111-2233"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseConfig(env.Options{Environment: environment})
			require.Error(t, err)
		})
	}
}

func TestValidPin(t *testing.T) {
	require.True(t, validPin("00102003"))
	require.False(t, validPin("0010200"))
	require.False(t, validPin("001020033"))
	require.False(t, validPin("0010200x"))
	require.False(t, validPin("００102003"))
}
