package order

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"restaurant-orders/internal/order/api/http"
	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/xpkg/config"
	"restaurant-orders/internal/xpkg/logger"
)

type params struct {
	orderParams *core.OrderParams
	configPath  string
	cfg         *config.Config
}

// Execute starts the order service
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	newCtx, close := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer close()

	params, err := parseParams(args)
	if err != nil {
		if errors.Is(err, core.ErrHelp) {
			return err
		}
		mylog.Action("command_parse_failed").Error("Invalid command received", err)
		return err
	}
	if err = validateParams(params); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}
	mylog.Action("command_validation_completed").Info("Successfully validate params")

	server := http.NewServer(newCtx, params.cfg, params.orderParams, mylog)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		<-runErrCh
		return server.Stop(context.Background())
	case err := <-runErrCh:
		if err != nil {
			mylog.Action("order_service_failed").Error("Server failed unexpectedly", err)
			_ = server.Stop(context.Background())
			return err
		}
		mylog.Action("server_stopped").Info("Server exited normally")
		return server.Stop(context.Background())
	}
}

// parseParams parse params from terminal
func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("order-service", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")

	port := fs.Int("port", 3000, "Port to run the order service")
	maxConcurrent := fs.Int("max-concurrent", 50, "Max concurrent API requests")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, core.ErrHelp
		}
		return nil, errors.New("cannot parse arguments")
	}

	if *showHelp {
		fs.Usage()
		return nil, core.ErrHelp
	}

	return &params{
		orderParams: &core.OrderParams{
			Port:          *port,
			MaxConcurrent: *maxConcurrent,
		},
		configPath: *configPath,
	}, nil
}

// validateParams loads the config and checks the flags
func validateParams(params *params) error {
	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		return err
	}
	if cfg.DB == nil {
		return errors.New("config: database section is required for order-service")
	}
	if cfg.RMQ == nil {
		return errors.New("config: rabbitmq section is required for order-service")
	}
	params.cfg = cfg

	orderParams := params.orderParams
	if orderParams.Port <= 0 || orderParams.Port >= 65536 {
		return fmt.Errorf("port must be in [1: 65,535]: %d", orderParams.Port)
	}

	if orderParams.MaxConcurrent <= 0 {
		return fmt.Errorf("max number of concurrent requests must be positive: %d", orderParams.MaxConcurrent)
	}

	return nil
}
