package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AdamCoscia/KnowledgeVIS/internal/config"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
	httpapi "github.com/AdamCoscia/KnowledgeVIS/internal/interfaces/http"
)

type serveOptions struct {
	host  string
	port  int
	watch bool
}

// NewServeCmd runs the HTTP API until SIGINT or SIGTERM.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session API server",
		Long: "Serve the session API: create sessions, run queries against the prediction\n" +
			"backend, change filters and fetch each view's drawing. The config file, when\n" +
			"one was loaded, is watched and live settings are applied on change.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cliCtx.Config.Server.Host = opts.host
			}
			if cmd.Flags().Changed("port") {
				cliCtx.Config.Server.Port = opts.port
			}
			return runServe(cmd.Context(), cliCtx, opts.watch)
		},
	}
	cmd.Flags().StringVar(&opts.host, "host", "", "listen host; overrides server.host")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "listen port; overrides server.port")
	cmd.Flags().BoolVar(&opts.watch, "watch", true, "reload the config file on change")
	return cmd
}

func runServe(parent context.Context, cliCtx *CLIContext, watch bool) error {
	backend, err := cliCtx.backend()
	if err != nil {
		return err
	}
	cfg, logger := cliCtx.Config, cliCtx.Logger
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := Build(ctx, cfg, logger, backend, Version)
	if err != nil {
		return err
	}

	if watch && cliCtx.ConfigPath != "" {
		err := config.Watch(cliCtx.ConfigPath, func(next *config.Config) {
			if pending := app.Reload(next); len(pending) > 0 {
				logger.Warn("config changed; restart to apply", logging.Strings("keys", pending))
			}
		}, func(err error) {
			logger.Warn("config reload rejected", logging.Err(err))
		})
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	srv := httpapi.NewServer(cfg.Server, app.Handler, logger.Named("http"))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("knowledgevis serving",
		logging.String("addr", cfg.Server.Addr()),
		logging.String("backend", cfg.Backend.BaseURL),
		logging.String("cache", cfg.Cache.Driver),
		logging.Bool("kafka", cfg.Kafka.Enabled),
		logging.Bool("minio", cfg.MinIO.Enabled),
		logging.String("version", Version))

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("HTTP server failed", logging.Err(serveErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	if err := app.Close(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	_ = logger.Sync()
	return serveErr
}
