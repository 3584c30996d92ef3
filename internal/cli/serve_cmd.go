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

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"lab-hours/internal/api"
	"lab-hours/internal/handler"
	"lab-hours/pkg/telegram"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var noBot bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API, rollover scheduler and Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			return serve(cmd.Context(), app, !noBot)
		},
	}

	cmd.Flags().BoolVar(&noBot, "no-bot", false, "Do not start the Telegram bot even if a token is configured")

	return cmd
}

func serve(parent context.Context, app *App, withBot bool) error {
	log := app.Logger
	cfg := app.Config

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Инициализируем администратора из конфига
	if err := app.Users.InitializeAdmin(ctx, cfg.Telegram.BaseAdminChatID); err != nil {
		log.Warnf("Failed to initialize admin: %v", err)
	} else if cfg.Telegram.BaseAdminChatID != 0 {
		log.Infof("Admin initialized with chat ID: %d", cfg.Telegram.BaseAdminChatID)
	}

	if cfg.Rollover.Enabled {
		if err := app.Scheduler.Start(); err != nil {
			return err
		}
	} else {
		log.Info("Rollover scheduler disabled by config")
	}

	if withBot && cfg.Telegram.Token != "" {
		client, err := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.Debug)
		if err != nil {
			return fmt.Errorf("failed to create Telegram client: %w", err)
		}
		log.Infof("Authorized on account %s", client.Bot.Self.UserName)

		botHandler := handler.NewHandler(
			client,
			app.Users,
			app.Sessions,
			app.Hours,
			app.History,
			app.Schedules,
			app.Scheduler,
			app.Calculator,
			log,
		)

		go botHandler.HandleUpdates(ctx, client.Updates())
		defer client.Stop()
	}

	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(api.NewHandler(api.Deps{
		Users:      app.Users,
		Sessions:   app.Sessions,
		Hours:      app.Hours,
		History:    app.History,
		Schedules:  app.Schedules,
		Scheduler:  app.Scheduler,
		Calculator: app.Calculator,
		Logger:     log,
	}), cfg.Server)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited")
	return nil
}
