package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	concord4 "github.com/caarlos0/concord4-bridge"
	"github.com/caarlos0/concord4-bridge/internal/homekit"
	"github.com/caarlos0/concord4-bridge/internal/integration"
	"github.com/caarlos0/concord4-bridge/internal/mqtt"
	"github.com/caarlos0/concord4-bridge/internal/store"
	"github.com/caarlos0/concord4-bridge/internal/web"
	"github.com/caarlos0/env/v11"
	logp "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "bridge",
})

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		log.Fatal("command failed", "err", err)
	}
}

func rootCmd() *cobra.Command {
	var cfg Config
	root := &cobra.Command{
		Use:           "concord4-bridge",
		Short:         "HomeKit and MQTT bridge for GE Concord4 alarm panels",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			var err error
			cfg, err = parseConfig(env.Options{})
			if err != nil {
				return err
			}
			setupLogging(cfg.level())
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Load every configured panel and serve HomeKit, MQTT and the web UI",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), cfg)
			},
		},
		addCmd(&cfg),
		&cobra.Command{
			Use:   "remove ID",
			Short: "Remove a configured panel",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return withStore(cfg, func(st store.Store) error {
					if err := st.Delete(args[0]); err != nil {
						return err
					}
					log.Info("entry removed", "entry", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "entries",
			Short: "List configured panels as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cfg, func(st store.Store) error {
					entries, err := st.List()
					if err != nil {
						return err
					}
					return printYAML(cmd.OutOrStdout(), entries)
				})
			},
		},
	)
	return root
}

func addCmd(cfg *Config) *cobra.Command {
	var input integration.UserInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Test the connection to a concord4ws server and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			result := integration.NewConfigFlow(dialer).StepUser(ctx, &input)
			if result.Type != integration.ResultCreateEntry {
				return flowError(result.Errors)
			}
			return withStore(*cfg, func(st store.Store) error {
				entry, err := st.Create(result.Title, result.Data)
				if err != nil {
					return err
				}
				log.Info("entry created", "entry", entry.ID, "name", entry.Data.Name)
				return printYAML(cmd.OutOrStdout(), entry)
			})
		},
	}
	cmd.Flags().StringVar(&input.Name, "name", "", "name of the panel")
	cmd.Flags().StringVar(&input.Host, "host", "", "concord4ws server host")
	cmd.Flags().StringVar(&input.Port, "port", "8080", "concord4ws server port")
	return cmd
}

func flowError(errs map[string]string) error {
	var lines []string
	for _, field := range []string{integration.ErrorBase, "name", "host", "port"} {
		if code, ok := errs[field]; ok {
			lines = append(lines, field+": "+code)
		}
	}
	return fmt.Errorf("could not add entry:\n%s", strings.Join(lines, "\n"))
}

func withStore(cfg Config, fn func(st store.Store) error) error {
	st, err := store.NewBoltStore(cfg.DB)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("could not close store", "err", err)
		}
	}()
	return fn(st)
}

func dialer(host string, port int) integration.Client {
	return concord4.New(host, port, concord4.WithLogger(log.WithPrefix("concord4ws")))
}

func setupLogging(level logp.Level) {
	log.SetLevel(level)
	integration.SetLogger(log.WithPrefix("concord4"))
	homekit.SetLogger(log.WithPrefix("homekit"))
	mqtt.SetLogger(log.WithPrefix("mqtt"))
	web.SetLogger(log.WithPrefix("web"))
}
