// Copyright (C) 2017 ScyllaDB

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/scylladb/autorepair/pkg"
	"github.com/scylladb/autorepair/pkg/config"
	"github.com/scylladb/go-log"
	"github.com/spf13/cobra"
)

var (
	cfgConfigFiles   []string
	cfgDeveloperMode bool
	cfgVersion       bool
)

func init() {
	rootCmd.Flags().StringSliceVarP(&cfgConfigFiles, "config-file", "c",
		[]string{"/etc/scylla-autorepair/scylla-autorepair.yaml"}, "configuration file `path`")
	rootCmd.Flags().BoolVar(&cfgDeveloperMode, "developer-mode", false, "run in developer mode")
	rootCmd.Flags().BoolVar(&cfgVersion, "version", false, "print product version and exit")
}

var rootCmd = &cobra.Command{
	Use:          "scylla-autorepair",
	Short:        "Scylla auto-repair server",
	Args:         cobra.NoArgs,
	SilenceUsage: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		// print version and return
		if cfgVersion {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", pkg.Version())
			return nil
		}

		// read configuration
		c, err := config.ParseConfigFiles(cfgConfigFiles)
		if err != nil {
			return errors.Wrapf(err, "configuration %q", cfgConfigFiles)
		}
		if cfgDeveloperMode {
			c.Logger.Development = true
		}
		if err := c.Validate(); err != nil {
			return errors.Wrapf(err, "configuration %q", cfgConfigFiles)
		}

		// get a base context
		ctx := log.WithNewTraceID(context.Background())

		// create logger
		logger, err := c.MakeLogger()
		if err != nil {
			return errors.Wrap(err, "logger")
		}

		// wait for database
		if err := waitForDatabase(ctx, c, logger); err != nil {
			return err
		}

		// create keyspace and tables
		logger.Info(ctx, "Using keyspace", "keyspace", c.Database.Keyspace)
		if err := createKeyspace(c); err != nil {
			return errors.Wrap(err, "database")
		}

		// start server
		s, err := newServer(c, logger)
		if err != nil {
			return errors.Wrap(err, "server init")
		}
		if err := s.startServices(ctx); err != nil {
			return errors.Wrap(err, "server start")
		}
		s.startHTTPServers(ctx)
		defer s.close()

		// wait signal
		signalCh := make(chan os.Signal, 1)
		signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-s.errCh:
			if err != nil {
				logger.Error(ctx, "Server error", "error", err)
			}
		case sig := <-signalCh:
			logger.Info(ctx, "Received signal", "signal", sig)
		}

		// close
		s.shutdownServers(ctx, 30*time.Second)
		s.close()

		// bye
		logger.Info(ctx, "Server stopped")
		logger.Sync()

		return nil
	},
}
