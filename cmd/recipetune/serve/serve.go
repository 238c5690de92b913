package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/recipetune/cmd/recipetune/cliconfig"
	"github.com/papercomputeco/recipetune/server"
)

const serveLongDesc string = `Serve an HTTP browser over the artifacts and the example index.

Endpoints:
  GET /health
  GET /dag/stats             node, root and leaf counts of the index
  GET /dag/node/:hash        one message node
  GET /dag/history           every indexed example
  GET /dag/history/:hash     the example ending at a node
  GET /artifacts             manifest and record counts
  GET /artifacts/:variant    the artifact as NDJSON (?limit=N)

The index is written by "recipetune generate --index".

Examples:
  recipetune serve
  recipetune serve --listen :9090 --db data/examples.db`

const serveShortDesc string = "Serve the example browser"

const shutdownTimeout = 10 * time.Second

type serveCommander struct {
	listen    string
	dbPath    string
	artifacts string
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on")
	cmd.Flags().StringVar(&cmder.dbPath, "db", "", "Path to the SQLite example index")
	cmd.Flags().StringVar(&cmder.artifacts, "artifacts", "", "Directory holding the JSON-lines artifacts")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := cliconfig.Load(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Server.ListenAddr = c.listen
	}
	if flags.Changed("db") {
		cfg.Data.IndexPath = c.dbPath
	}
	if flags.Changed("artifacts") {
		cfg.Data.ArtifactsDir = c.artifacts
	}

	logger := cliconfig.Logger(cmd)
	defer logger.Sync()

	dbPath := cfg.Data.IndexPath
	if _, err := os.Stat(dbPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("could not stat index %s: %w", dbPath, err)
		}
		if flags.Changed("db") {
			return fmt.Errorf("index %s does not exist", dbPath)
		}
		logger.Warn("example index not found, run generate --index to create it", zap.String("path", dbPath))
		dbPath = ""
	}

	srv, err := server.New(server.Config{
		ListenAddr:   cfg.Server.ListenAddr,
		DBPath:       dbPath,
		ArtifactsDir: cfg.Data.ArtifactsDir,
	}, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down browser server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
