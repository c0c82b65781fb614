package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/crmgeek/backend/internal/api"
	"github.com/wonny/crmgeek/backend/internal/api/auth"
	"github.com/wonny/crmgeek/backend/internal/api/handlers"
	"github.com/wonny/crmgeek/backend/internal/orders"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Start the REST API server.

Endpoints:
  GET  /health              - Health check
  POST /api/forecast        - Classic forecast (one model)
  POST /api/forecast/pro    - PRO forecast with interpretation
  GET  /api/forecast/last   - Last cached classic payload
  GET  /api/models          - Forecastable product labels
  POST /api/orders          - Create order (reserves stock)
  GET  /api/orders/{id}     - Get order
  PUT  /api/orders/{id}     - Amend order

Example:
  go run ./cmd/crm api
  go run ./cmd/crm api --port 8080
  STORAGE=memory go run ./cmd/crm api --seed seed.yaml --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiSeed          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default PORT)")
	apiCmd.Flags().StringVar(&apiSeed, "seed", "", "seed YAML for STORAGE=memory")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "also run housekeeping jobs")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	if apiSeed != "" {
		if a.memory == nil {
			return fmt.Errorf("--seed requires STORAGE=memory")
		}
		seed, err := orders.LoadSeed(apiSeed)
		if err != nil {
			return err
		}
		a.memory.Load(seed)
		a.log.WithFields(map[string]interface{}{
			"products": len(seed.Products),
			"clients":  len(seed.Clients),
		}).Info("Memory storage seeded")
	}

	if a.cfg.JWTSecret == "" {
		a.log.Warn("JWT_SECRET not set, every /api request will be rejected")
	}

	if apiWithScheduler {
		sched, err := newScheduler(a)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	// Handlers and router
	h := api.Handlers{
		Forecast: handlers.NewForecastHandler(a.orchestrator, a.orchestrator.Cache(), a.catalog, a.log),
		Orders:   handlers.NewOrderHandler(a.orders, a.log),
	}
	router := api.NewRouter(h, auth.NewVerifier(a.cfg.JWTSecret), a.log)
	server := api.New(a.cfg, a.log, router)

	// Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-quit:
	}

	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
