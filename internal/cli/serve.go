package cli

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

	"notes/internal/api"
	"notes/internal/auth"
	"notes/internal/photo"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides ADDR)")

	return cmd
}

func serve(ctx context.Context, opts *ServeOptions) error {
	cfg, logger := opts.Config, opts.Logger
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	identity, err := auth.NewIdentity(st, 0)
	if err != nil {
		return err
	}
	handlers, err := api.NewHandlers(api.Options{
		Store:    st,
		Identity: identity,
		Sessions: auth.NewSessions(auth.SessionConfig{
			Secret:      cfg.SecretKey,
			TTL:         cfg.SessionTTL,
			RememberTTL: cfg.RememberTTL,
			Secure:      cfg.CookieSecure,
		}),
		Photos:    photo.New(cfg.StaticDir, cfg.PhotoWidth, cfg.PhotoHeight),
		Logger:    logger,
		StaticDir: cfg.StaticDir,
		MaxUpload: int64(cfg.MaxUploadMB) << 20,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlers.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", cfg.Addr, "env", cfg.Environment, "db", cfg.DBDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
