package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"restaurant-orders/internal/board"
	"restaurant-orders/internal/checkout"
	"restaurant-orders/internal/operator"
	"restaurant-orders/internal/order"
	xerrors "restaurant-orders/internal/xpkg/errors"
	"restaurant-orders/internal/xpkg/logger"
)

type executeFunc func(ctx context.Context, mylog logger.Logger, args []string) error

type mode struct {
	service string
	execute executeFunc
}

var modes = map[string]mode{
	"order-service": {"order-service", order.Execute},
	"os":            {"order-service", order.Execute},
	"order-board":   {"order-board", board.Execute},
	"ob":            {"order-board", board.Execute},
	"checkout":      {"checkout", checkout.Execute},
	"co":            {"checkout", checkout.Execute},
	"order-status":  {"order-status", operator.Execute},
	"st":            {"order-status", operator.Execute},
}

func main() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "INFO"
	}
	mylogger, err := logger.New(level)
	if err != nil {
		log.Fatalf("log error: %v", err)
	}

	fs := flag.NewFlagSet("main", flag.ExitOnError)
	modeName := fs.String("mode", "", "mode to run: order-service | order-board | checkout | order-status")

	// only --mode is parsed here, the rest belongs to the mode
	args := os.Args[1:]
	modeArgs := []string{}
	for i, arg := range args {
		if strings.HasPrefix(arg, "--mode") || strings.HasPrefix(arg, "-mode") {
			modeArgs = args[:i+1]
			if !strings.Contains(arg, "=") && i+1 < len(args) {
				modeArgs = args[:i+2]
			}
			break
		}
	}
	if err := fs.Parse(modeArgs); err != nil {
		mylogger.Action("restaurant_orders_failed").Error("Failed to parse flags", err)
		help(fs)
		return
	}
	if *modeName == "" {
		mylogger.Action("restaurant_orders_failed").Error("Failed to start", xerrors.ErrModeFlag)
		help(fs)
		os.Exit(2)
	}

	m, ok := modes[*modeName]
	if !ok {
		mylogger.Action("restaurant_orders_failed").Error("Failed to start", xerrors.ErrUnknownService, "mode", *modeName)
		help(fs)
		os.Exit(2)
	}

	l := mylogger.With("service", m.service)
	action := strings.ReplaceAll(m.service, "-", "_")
	l.Action(action + "_started").Info("Successfully started")
	if err := m.execute(context.Background(), l, args[len(modeArgs):]); err != nil {
		if errors.Is(err, xerrors.ErrHelp) {
			return
		}
		l.Action(action+"_failed").Error("Error in "+m.service, err)
		log.Fatalf("failed to execute %s: %s", m.service, err)
	}
	l.Action(action + "_completed").Info("Successfully completed")
}

func help(fs *flag.FlagSet) {
	fmt.Println("\nUsage:")
	fs.PrintDefaults()
	fmt.Println("\nExamples:")
	fmt.Println("  ./restaurant-orders --mode=order-service --port=3000 --max-concurrent=50")
	fmt.Println("  ./restaurant-orders --mode=order-board --restaurant=r-1")
	fmt.Println("  ./restaurant-orders --mode=checkout --cart=cart.json")
	fmt.Println("  ./restaurant-orders --mode=order-status --restaurant=r-1 --order=<id> --to=accepted")
}
