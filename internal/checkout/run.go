package checkout

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"restaurant-orders/internal/client"
	"restaurant-orders/internal/order/app/cart"
	"restaurant-orders/internal/xpkg/config"
	xerrors "restaurant-orders/internal/xpkg/errors"
	"restaurant-orders/internal/xpkg/logger"

	"github.com/shopspring/decimal"
)

type params struct {
	configPath   string
	cartPath     string
	restaurantID string
	dryRun       bool
	cfg          *config.Config
}

// Execute prices the cart file and submits it as a new order.
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
	if p.cfg, err = config.LoadConfig(p.configPath); err != nil {
		mylog.Action("config_load_failed").Error("Failed to load config", err)
		return err
	}

	file, err := LoadCartFile(p.cartPath)
	if err != nil {
		return err
	}
	if p.restaurantID != "" {
		file.RestaurantID = p.restaurantID
	}
	if file.RestaurantID == "" {
		return fmt.Errorf("restaurant id is missing: pass --restaurant or set restaurantId in the cart file")
	}

	c, err := file.Build()
	if err != nil {
		return err
	}
	vat := p.cfg.VATRate()
	printCart(os.Stdout, c, vat)
	if p.dryRun {
		return nil
	}

	cl, err := client.Open(newCtx, p.cfg, mylog)
	if err != nil {
		return err
	}
	defer cl.Close()

	order, err := cl.Store.Submit(newCtx, file.RestaurantID, c.ToOrderItems(), file.Customer, file.Delivery, vat)
	if err != nil {
		return err
	}
	c.Clear()

	fmt.Fprintf(os.Stdout, "order %s placed (%s), total %s\n", order.OrderNumber, order.Status, order.Totals.Total.StringFixed(2))
	return nil
}

func printCart(w io.Writer, c *cart.Cart, vat decimal.Decimal) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QTY\tITEM\tUNIT\tEXTRAS")
	for _, line := range c.Lines() {
		extras := decimal.Zero
		for _, cz := range line.Customizations {
			extras = extras.Add(cz.PriceDelta)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", line.Quantity, line.Item.Name, line.Item.UnitPrice.StringFixed(2), extras.StringFixed(2))
	}
	totals := c.Totals(vat)
	fmt.Fprintf(tw, "\tsubtotal\t\t%s\n", totals.Subtotal.StringFixed(2))
	fmt.Fprintf(tw, "\tvat %s%%\t\t%s\n", vat.String(), totals.VATAmount.StringFixed(2))
	fmt.Fprintf(tw, "\ttotal\t\t%s\n", totals.Total.StringFixed(2))
	tw.Flush()
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	cartPath := fs.String("cart", "cart.json", "path of the cart file")
	restaurantID := fs.String("restaurant", "", "restaurant id (overrides the cart file)")
	dryRun := fs.Bool("dry-run", false, "print totals without submitting")

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
		cartPath:     *cartPath,
		restaurantID: *restaurantID,
		dryRun:       *dryRun,
	}, nil
}
