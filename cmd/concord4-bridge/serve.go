package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/caarlos0/concord4-bridge/internal/homekit"
	"github.com/caarlos0/concord4-bridge/internal/integration"
	"github.com/caarlos0/concord4-bridge/internal/mqtt"
	"github.com/caarlos0/concord4-bridge/internal/store"
	"github.com/caarlos0/concord4-bridge/internal/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func serve(ctx context.Context, cfg Config) error {
	log.Info(
		"concord4-bridge",
		"version", version,
		"commit", commit,
		"date", date,
		"info", strings.Join([]string{
			"HomeKit and MQTT bridge for GE Concord4 alarm panels",
			"talks to panels through concord4ws servers",
		}, "\n"),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewBoltStore(cfg.DB)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("could not close store", "err", err)
		}
	}()

	bridge := homekit.NewBridge(accessory.Info{
		Name:         "Concord4 Bridge",
		Manufacturer: integration.Manufacturer,
		Firmware:     version,
	}, cfg.HomeKit.Code)
	if cfg.HomeKit.Code == "" {
		log.Warn("HOMEKIT_CODE not set, HomeKit will not be able to arm or disarm")
	}

	hosts := integration.Hosts{bridge, integration.MetricsHost{}}
	if cfg.MQTT.Broker != "" {
		mq, err := mqtt.New(mqtt.Config{
			Broker:          cfg.MQTT.Broker,
			Username:        cfg.MQTT.Username,
			Password:        cfg.MQTT.Password,
			ClientID:        cfg.MQTT.ClientID,
			TopicPrefix:     cfg.MQTT.TopicPrefix,
			DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
		})
		if err != nil {
			return err
		}
		defer mq.Close()
		hosts = append(hosts, mq)
	}

	integ := integration.New(dialer, integration.Platforms(hosts)...)

	g, gctx := errgroup.WithContext(ctx)
	loader := newRetries(gctx, g, integ)

	entries, err := st.List()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := integ.SetupEntry(ctx, entry); err != nil {
			if !errors.Is(err, integration.ErrNotReady) {
				log.Error("could not set up entry", "entry", entry.ID, "err", err)
				continue
			}
			log.Warn("entry not ready, retrying in the background", "entry", entry.ID, "err", err)
			loader.Load(ctx, entry)
		}
	}

	server, err := hap.NewServer(hap.NewFsStore(cfg.HAPDB), bridge.A, bridge.Accessories()...)
	if err != nil {
		return err
	}
	server.Addr = cfg.Address
	server.Pin = cfg.HomeKit.Pin
	server.ServeMux().Handle("/metrics", promhttp.Handler())
	web.New(integration.NewConfigFlow(dialer), st, integ, loader).Register(server.ServeMux())

	g.Go(func() error {
		log.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	<-gctx.Done()
	log.Info("stopping server")
	err = g.Wait()

	unloadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if uerr := integ.UnloadAll(unloadCtx); uerr != nil {
		log.Error("could not unload entries", "err", uerr)
	}
	return err
}

