package operator

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"restaurant-orders/internal/client"
	"restaurant-orders/internal/order/app/services"
	"restaurant-orders/internal/order/domain/models"
	"restaurant-orders/internal/xpkg/config"
	xerrors "restaurant-orders/internal/xpkg/errors"
	"restaurant-orders/internal/xpkg/logger"
)

type params struct {
	configPath   string
	restaurantID string
	orderID      string
	target       models.Status
	note         string
}

// Execute moves one order to the requested status.
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

	cfg, err := config.LoadConfig(p.configPath)
	if err != nil {
		mylog.Action("config_load_failed").Error("Failed to load config", err)
		return err
	}

	c, err := client.Open(newCtx, cfg, mylog)
	if err != nil {
		return err
	}
	defer c.Close()

	return apply(newCtx, c.Store, p, os.Stdout)
}

func apply(ctx context.Context, store *services.OrderStore, p *params, out io.Writer) error {
	var (
		order models.Order
		err   error
	)
	if p.target == models.StatusCancelled {
		order, err = store.Cancel(ctx, p.restaurantID, p.orderID, p.note)
	} else {
		order, err = store.UpdateStatus(ctx, p.restaurantID, p.orderID, p.target, p.note)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "order %s is now %s\n", order.OrderNumber, order.Status)
	return nil
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("order-status", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	restaurantID := fs.String("restaurant", "", "restaurant id")
	orderID := fs.String("order", "", "order id")
	to := fs.String("to", "", "target status")
	note := fs.String("note", "", "note for the history entry (the reason when cancelling)")

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

	if *restaurantID == "" || *orderID == "" {
		return nil, fmt.Errorf("%w: --restaurant and --order are required", xerrors.ErrParseCmd)
	}
	target, ok := models.ParseStatus(*to)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", xerrors.ErrParseCmd, *to)
	}

	return &params{
		configPath:   *configPath,
		restaurantID: *restaurantID,
		orderID:      *orderID,
		target:       target,
		note:         *note,
	}, nil
}
