// Package app provides the scholar server application.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kart-io/scholar-x/cmd/scholar/app/options"
	"github.com/kart-io/scholar-x/internal/scholar"
)

const commandDesc = `Scholar-X retrieval service

A dual-granularity retrieval pipeline for academic papers.

This server provides:
  - Paper ingestion (arXiv ids, URLs or raw text) into fine and coarse
    chunk collections
  - Citation suggestion against the fine collection
  - Context search (fine, coarse or combined) and question answering
  - Collection maintenance (count, list, delete, short-chunk cleanup)`

// NewScholarCommand creates the root command.
func NewScholarCommand() *cobra.Command {
	opts := options.NewServerOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:           scholar.Name,
		Short:         "Dual-granularity retrieval service for academic papers",
		Long:          commandDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd, configFile, opts); err != nil {
				return err
			}
			return run(opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&configFile, "config", "c", "", "Path to the configuration file.")
	opts.AddFlags(fs)

	return cmd
}

// loadConfig merges the config file into the options. Flags set on the
// command line take precedence over the file.
func loadConfig(cmd *cobra.Command, configFile string, opts *options.ServerOptions) error {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(scholar.Name)
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/scholar-x")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// No config file anywhere on the search path: flags and defaults.
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return v.Unmarshal(opts)
}

func run(opts *options.ServerOptions) error {
	if err := opts.Complete(); err != nil {
		return fmt.Errorf("failed to complete options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := setupSignalContext()

	server, err := cfg.NewServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return server.Run(ctx)
}

// setupSignalContext returns a context cancelled on SIGINT or SIGTERM; a
// second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
