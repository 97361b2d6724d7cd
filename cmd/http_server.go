package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/licensestore/internal/auth"
	"github.com/frahmantamala/licensestore/internal/cart"
	"github.com/frahmantamala/licensestore/internal/catalog"
	"github.com/frahmantamala/licensestore/internal/content"
	"github.com/frahmantamala/licensestore/internal/order"
	"github.com/frahmantamala/licensestore/internal/payment"
	"github.com/frahmantamala/licensestore/internal/rbac"
	"github.com/frahmantamala/licensestore/internal/realtime"
	"github.com/frahmantamala/licensestore/internal/support"
	"github.com/frahmantamala/licensestore/internal/transport/rest"
	"github.com/frahmantamala/licensestore/internal/transport/swagger"
	"github.com/frahmantamala/licensestore/internal/user"
)

var openAPIPath string

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API and websocket requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func init() {
	httpServerCmd.Flags().StringVar(&openAPIPath, "openapi", "./api/openapi.yml", "OpenAPI document served at /openapi.yml")
}

func startHTTPServer() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	svc, err := buildServices(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	lg := svc.Logger

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// hubs relay through redis when it is configured so every instance sees every broadcast
	var backplane realtime.Backplane
	if svc.Cache != nil {
		backplane = svc.Cache
	}
	hubs := realtime.NewHubs(backplane, lg)
	realtime.NewNotifier(hubs, lg).RegisterEventHandlers(svc.EventBus)
	go func() {
		if err := hubs.Run(ctx); err != nil {
			lg.Error("realtime backplane stopped", "error", err)
		}
	}()

	doc, err := swagger.Load(ctx, openAPIPath)
	if err != nil {
		lg.Warn("openapi document not served", "error", err)
	}

	checks := map[string]rest.Checker{"postgres": svc.DB.PingContext}
	if svc.Cache != nil {
		checks["redis"] = svc.Cache.Ping
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Health:   rest.NewHealthHandler(checks),
		Auth:     auth.NewHandler(svc.Auth),
		User:     user.NewHandler(svc.User),
		RBAC:     rbac.NewHandler(svc.RBAC),
		Catalog:  catalog.NewHandler(svc.Catalog),
		Cart:     cart.NewHandler(svc.Cart),
		Order:    order.NewHandler(svc.Order),
		Payment:  payment.NewHandler(svc.Payment),
		Webhook:  payment.NewWebhookHandler(svc.Payment),
		Support:  support.NewHandler(svc.Support),
		Content:  content.NewHandler(svc.Content),
		Realtime: realtime.NewHandler(hubs, svc.Support, cfg.Realtime, cfg.Server.AllowedOrigins),
		OpenAPI:  doc,
	}, rbac.NewAuthorizer(svc.Checker, lg), auth.NewRoleAuthorization(lg), cfg.Server.AllowedOrigins, lg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	lg.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			lg.Error("Server failed to start", "error", err)
			stop()
			svc.Close()
			os.Exit(1)
		}
	}

	stop()
	svc.Close()
	lg.Info("Server stopped")
}
