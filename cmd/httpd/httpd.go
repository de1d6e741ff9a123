// Package httpd implements the dashboard HTTP server command.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campusdash/campusdash/internal/api"
	"github.com/campusdash/campusdash/internal/bootstrap"
	"github.com/campusdash/campusdash/internal/logger"
)

const shutdownTimeout = 30 * time.Second

// Command returns the httpd command, which serves the dashboard API until
// interrupted.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Start the dashboard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	comps, err := bootstrap.NewComponents(viper.GetViper())
	if err != nil {
		return err
	}
	defer comps.Close()

	server := api.NewServer(comps.Handler, comps.Config.Server, comps.Config.App.Debug, comps.Log)

	errChan := make(chan error, 1)
	go func() {
		comps.Log.Info("http server listening", logger.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigChan:
		comps.Log.Info("shutting down", logger.String("signal", sig.String()))
	case <-ctx.Done():
		comps.Log.Info("shutting down", logger.String("reason", ctx.Err().Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	comps.Log.Info("server stopped")
	return nil
}
