package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/contacthub/internal/auth"
	"gitlab.com/dirk.krummacker/contacthub/internal/config"
	"gitlab.com/dirk.krummacker/contacthub/internal/contacts"
	"gitlab.com/dirk.krummacker/contacthub/internal/dashboard"
	"gitlab.com/dirk.krummacker/contacthub/internal/logging"
	"gitlab.com/dirk.krummacker/contacthub/internal/service"
	"gitlab.com/dirk.krummacker/contacthub/internal/store"
	"go.uber.org/zap"
)

// Usage example on the command line:
// > PORT=8080 DBUSER=dirk DBPWD=bullo92 JWT_SECRET=s3cr3t GIN_MODE=release GIN_LOGGING=OFF go run main.go
// > go run main.go --config ../../config.yaml
func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:           "service",
		Short:         "Run the contacts service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML configuration file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			logger.Error("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	provider := auth.NewProvider(st, []byte(cfg.JWTSecret), cfg.SessionTTL)
	registry := dashboard.NewRegistry(provider, contacts.NewRepository(st, logger), logger)
	defer registry.Close()
	router := service.New(st, provider, registry, logger).SetupHttpRouter(cfg.GinLogging)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("driver", cfg.DBDriver))
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
