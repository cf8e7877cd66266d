package board

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-orders/internal/client"
	"restaurant-orders/internal/order/app/services"
	"restaurant-orders/internal/xpkg/config"
	xerrors "restaurant-orders/internal/xpkg/errors"
	"restaurant-orders/internal/xpkg/logger"

	"golang.org/x/sync/errgroup"
)

type params struct {
	configPath   string
	restaurantID string
	orderID      string
	pollInterval time.Duration
	cfg          *config.Config
}

// Execute runs the operator screens until a shutdown signal arrives.
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	newCtx, close := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer close()

	p, err := parseParams(args)
	if err != nil {
		if !errors.Is(err, xerrors.ErrHelp) {
			mylog.Action("command_parse_failed").Error("Invalid command received", err)
		}
		return err
	}
	if err := p.validate(); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}

	mylog = mylog.With("restaurant_id", p.restaurantID)
	c, err := client.Open(newCtx, p.cfg, mylog)
	if err != nil {
		return err
	}
	defer c.Close()

	board := New(c.Store, p.restaurantID, os.Stdout)
	refreshers := []*services.Refresher{
		services.NewRefresher("dashboard", p.restaurantID, c.Sync, p.pollInterval, board.Dashboard, mylog),
		services.NewRefresher("order_list", p.restaurantID, c.Sync, p.pollInterval, board.OrderList, mylog),
	}
	if p.orderID != "" {
		refreshers = append(refreshers,
			services.NewRefresher("order_detail", p.restaurantID, c.Sync, p.pollInterval, board.Detail(p.orderID), mylog))
	}

	mylog.Action("board_started").Info("Order board is running", "views", len(refreshers), "poll_interval", p.pollInterval.String())

	g, gctx := errgroup.WithContext(newCtx)
	g.Go(func() error { return c.RunSync(gctx) })
	for _, r := range refreshers {
		r := r
		g.Go(func() error { return r.Run(gctx) })
	}

	err = g.Wait()
	mylog.Action("board_stopped").Info("Order board stopped")
	return err
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("order-board", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	restaurantID := fs.String("restaurant", "", "restaurant id to observe")
	orderID := fs.String("order", "", "also show the detail view of this order")
	pollInterval := fs.Duration("poll-interval", 0, "refresh interval (default from config, 5s)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, xerrors.ErrHelp
		}
		return nil, xerrors.ErrParseCmd
	}
	if *showHelp {
		fs.Usage()
		return nil, xerrors.ErrHelp
	}

	return &params{
		configPath:   *configPath,
		restaurantID: *restaurantID,
		orderID:      *orderID,
		pollInterval: *pollInterval,
	}, nil
}

func (p *params) validate() error {
	if p.restaurantID == "" {
		return fmt.Errorf("--restaurant is required")
	}
	if p.pollInterval < 0 {
		return fmt.Errorf("poll interval must be positive: %s", p.pollInterval)
	}

	cfg, err := config.LoadConfig(p.configPath)
	if err != nil {
		return err
	}
	p.cfg = cfg
	if p.pollInterval == 0 {
		p.pollInterval = cfg.Board.PollInterval
	}
	return nil
}
