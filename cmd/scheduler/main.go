// Command scheduler runs the interview slot negotiation service.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/example/interview-scheduler/internal/application"
	"github.com/example/interview-scheduler/internal/config"
	httptransport "github.com/example/interview-scheduler/internal/http"
	"github.com/example/interview-scheduler/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:           "scheduler",
		Short:         "Interview slot negotiation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")

	root.AddCommand(
		newServeCommand(&configFile),
		newMigrateCommand(&configFile),
		newSweepCommand(&configFile),
		newTokenCommand(&configFile),
	)
	return root
}

func loadRuntime(cmd *cobra.Command, configFile string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newServeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background expiry sweep",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRuntime(cmd, *configFile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := buildApp(ctx, cfg, logger, time.Now)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
				defer cancel()
				if cerr := a.Close(closeCtx); cerr != nil {
					logger.Error("failed to release resources", "error", cerr)
				}
			}()

			if err := a.storage.Migrate(ctx); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}

			go runSweeper(ctx, a.service, cfg.Sweep.Interval, logger)

			listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HTTP.Port))
			if err != nil {
				return err
			}
			server := &http.Server{
				Handler:           a.handler,
				ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
				ReadTimeout:       cfg.HTTP.ReadTimeout,
				WriteTimeout:      cfg.HTTP.WriteTimeout,
				IdleTimeout:       60 * time.Second,
			}
			return runServer(ctx, server, listener, cfg.HTTP.ShutdownTimeout, logger)
		},
	}
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, server *http.Server, listener net.Listener, shutdownTimeout time.Duration, logger *slog.Logger) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("interview scheduler API listening", "addr", listener.Addr().String())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	<-done
	logger.Info("interview scheduler API stopped")
	return nil
}

func newMigrateCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRuntime(cmd, *configFile)
			if err != nil {
				return err
			}
			store, err := openStorage(cmd.Context(), cfg.Storage, logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := store.Close(); cerr != nil {
					logger.Error("failed to close storage", "error", cerr)
				}
			}()

			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("database migrations applied", "driver", cfg.Storage.Driver)
			return nil
		},
	}
}

func newSweepCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire proposals whose voting deadline has passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRuntime(cmd, *configFile)
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, logger, time.Now)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
				defer cancel()
				if cerr := a.Close(closeCtx); cerr != nil {
					logger.Error("failed to release resources", "error", cerr)
				}
			}()

			expired, err := a.service.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d proposals\n", expired)
			return nil
		},
	}
}

func newTokenCommand(configFile *string) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadRuntime(cmd, *configFile)
			if err != nil {
				return err
			}
			return issueToken(cmd.OutOrStdout(), cfg.Auth.JWTSecret, application.Principal{
				UserID: userID,
				Role:   application.Role(role),
			}, ttl, time.Now)
		},
	}
	cmd.Flags().StringVar(&userID, "uid", "", "user id placed in the uid claim")
	cmd.Flags().StringVar(&role, "role", string(application.RoleEmployer), "employer or candidate")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}

func issueToken(w io.Writer, secret string, principal application.Principal, ttl time.Duration, now func() time.Time) error {
	if principal.Role != application.RoleEmployer && principal.Role != application.RoleCandidate {
		return fmt.Errorf("role must be %q or %q", application.RoleEmployer, application.RoleCandidate)
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	verifier, err := httptransport.NewTokenVerifier(secret, now)
	if err != nil {
		return err
	}
	token, err := verifier.Issue(principal, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
