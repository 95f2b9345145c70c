package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	concord4 "github.com/caarlos0/concord4-bridge"
	"github.com/caarlos0/concord4-bridge/internal/integration"
	"github.com/caarlos0/concord4-bridge/internal/integration/integrationtest"
	"github.com/stretchr/testify/require"
)

func TestFlowError(t *testing.T) {
	err := flowError(map[string]string{
		"port":                integration.ErrorInvalidPort,
		integration.ErrorBase: integration.ErrorCannotConnect,
	})
	require.EqualError(t, err, "could not add entry:\nbase: cannot_connect\nport: invalid_port")
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printYAML(&buf, []integration.ConfigEntry{{
		ID:        "1",
		Title:     integration.EntryTitle,
		Data:      integration.EntryData{Name: "Home", Host: "panel.local", Port: 8080},
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}}))
	require.Equal(t, `- entry_id: "1"
  title: Concord4
  data:
    name: Home
    host: panel.local
    port: 8080
  created_at: 2024-03-01T10:00:00Z
`, buf.String())
}

func TestSetupWithRetry(t *testing.T) {
	entry := integration.ConfigEntry{ID: "1", Data: integration.EntryData{Name: "Home", Host: "panel.local", Port: 8080}}

	t.Run("retries until ready", func(t *testing.T) {
		var dials int
		integ := integration.New(func(string, int) integration.Client {
			dials++
			cli := integrationtest.New()
			if dials == 1 {
				cli.Err = concord4.ErrCannotConnect
			}
			return cli
		}, integration.Platforms(integration.Hosts{})...)

		require.NoError(t, setupWithRetry(context.Background(), integ, entry))
		require.Equal(t, 2, dials)
		_, ok := integ.Runtime(entry.ID)
		require.True(t, ok)
	})

	t.Run("stops on other errors", func(t *testing.T) {
		cli := integrationtest.New()
		integ := integration.New(cli.Dialer(), integration.Platforms(integration.Hosts{})...)
		require.NoError(t, integ.SetupEntry(context.Background(), entry))
		require.ErrorIs(t, setupWithRetry(context.Background(), integ, entry), integration.ErrAlreadyLoaded)
	})

	t.Run("stops when cancelled", func(t *testing.T) {
		cli := integrationtest.New()
		cli.Err = errors.New("refused")
		integ := integration.New(cli.Dialer(), integration.Platforms(integration.Hosts{})...)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, setupWithRetry(ctx, integ, entry), context.Canceled)
	})
}
