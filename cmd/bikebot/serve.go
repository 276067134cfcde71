package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/bikebot/internal/config"
	"github.com/zhouzirui/bikebot/internal/handler"
	"github.com/zhouzirui/bikebot/internal/service/chat"
	"github.com/zhouzirui/bikebot/internal/service/reply"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides PORT")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	source, err := buildReplySource(ctx, cfg, cat)
	if err != nil {
		return err
	}

	delay, err := reply.NewDelay(cfg.Chat.ReplyDelayMin, cfg.Chat.ReplyDelayMax, nil)
	if err != nil {
		return err
	}

	chatService := chat.NewService(cat, source, delay)
	defer chatService.Shutdown()

	stopJanitor, err := chatService.StartJanitor(cfg.Chat.SweepInterval, cfg.Chat.IdleTTL)
	if err != nil {
		return err
	}
	defer func() {
		if err := stopJanitor(); err != nil {
			log.Warn().Err(err).Msg("failed to stop session janitor")
		}
	}()

	router := handler.NewRouter(chatService)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Closing sessions ends open SSE and WebSocket streams so Shutdown can drain them.
	srv.RegisterOnShutdown(chatService.Shutdown)

	log.Info().Str("addr", cfg.Server.Addr).Str("brand", cat.Brand).Msg("BikeBot listening")
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
