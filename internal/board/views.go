// Package board renders the operator screens: a dashboard, the active order list and an
// order detail view. Every render re-reads the store.
package board

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"restaurant-orders/internal/order/app/status"
	"restaurant-orders/internal/order/domain/models"

	"github.com/shopspring/decimal"
)

const dashboardLimit = 200

// OrderReader is the read side of the order store.
type OrderReader interface {
	List(ctx context.Context, restaurantID string, filter models.ListFilter) ([]models.Order, error)
	Get(ctx context.Context, restaurantID, orderID string) (models.Order, error)
}

type Board struct {
	store        OrderReader
	restaurantID string
	out          io.Writer
	now          func() time.Time

	mu sync.Mutex
}

func New(store OrderReader, restaurantID string, out io.Writer) *Board {
	return &Board{
		store:        store,
		restaurantID: restaurantID,
		out:          out,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Dashboard shows counts per status and today's revenue from delivered orders.
func (b *Board) Dashboard(ctx context.Context) error {
	orders, err := b.store.List(ctx, b.restaurantID, models.ListFilter{Limit: dashboardLimit})
	if err != nil {
		return err
	}

	counts := make(map[models.Status]int, len(models.Statuses))
	revenue := decimal.Zero
	today := b.now().Format("2006-01-02")
	for _, o := range orders {
		counts[o.Status]++
		if o.Status == models.StatusDelivered && o.CreatedAt.Format("2006-01-02") == today {
			revenue = revenue.Add(o.Totals.Total)
		}
	}

	var sb strings.Builder
	b.header(&sb, "DASHBOARD")
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, st := range models.Statuses {
		fmt.Fprintf(tw, "%s\t%d\n", st, counts[st])
	}
	fmt.Fprintf(tw, "revenue today\t%s\n", revenue.StringFixed(2))
	tw.Flush()

	return b.write(sb.String())
}

// OrderList shows orders still in progress, oldest first, with the actions available next.
func (b *Board) OrderList(ctx context.Context) error {
	orders, err := b.store.List(ctx, b.restaurantID, models.ListFilter{
		Statuses:    []models.Status{models.StatusPending, models.StatusAccepted, models.StatusPreparing, models.StatusReady},
		Limit:       dashboardLimit,
		OldestFirst: true,
	})
	if err != nil {
		return err
	}

	var sb strings.Builder
	b.header(&sb, "ORDERS")
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tSTATUS\tCUSTOMER\tMETHOD\tITEMS\tTOTAL\tAGE\tNEXT")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			o.OrderNumber, o.Status, o.Customer.Name, o.DeliveryMethod, itemCount(o),
			o.Totals.Total.StringFixed(2), b.age(o.CreatedAt), joinStatuses(status.Next(o.Status)),
		)
	}
	tw.Flush()
	if len(orders) == 0 {
		sb.WriteString("no active orders\n")
	}

	return b.write(sb.String())
}

// Detail returns a view of one order with its items and status history.
func (b *Board) Detail(orderID string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		o, err := b.store.Get(ctx, b.restaurantID, orderID)
		if err != nil {
			return err
		}

		var sb strings.Builder
		b.header(&sb, "ORDER "+o.OrderNumber)
		fmt.Fprintf(&sb, "status: %s\ncustomer: %s (%s)\n", o.Status, o.Customer.Name, o.Customer.Phone)
		fmt.Fprintf(&sb, "method: %s, payment: %s\n", o.DeliveryMethod, o.PaymentMethod)
		if o.TableNumber != nil {
			fmt.Fprintf(&sb, "table: %d\n", *o.TableNumber)
		}
		if o.DeliveryAddress != "" {
			fmt.Fprintf(&sb, "address: %s\n", o.DeliveryAddress)
		}
		if o.SpecialInstructions != "" {
			fmt.Fprintf(&sb, "instructions: %s\n", o.SpecialInstructions)
		}

		tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "QTY\tITEM\tUNIT\tLINE")
		for _, it := range o.Items {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", it.Quantity, itemLabel(it), it.UnitPrice.StringFixed(2), it.LineTotal.StringFixed(2))
		}
		fmt.Fprintf(tw, "\tsubtotal\t\t%s\n", o.Totals.Subtotal.StringFixed(2))
		fmt.Fprintf(tw, "\tvat %s%%\t\t%s\n", o.VATRatePercent.String(), o.Totals.VATAmount.StringFixed(2))
		fmt.Fprintf(tw, "\ttotal\t\t%s\n", o.Totals.Total.StringFixed(2))
		tw.Flush()

		sb.WriteString("history:\n")
		for _, h := range o.StatusHistory {
			fmt.Fprintf(&sb, "  %s  %s", h.Timestamp.Format(time.RFC3339), h.Status)
			if h.Note != "" {
				fmt.Fprintf(&sb, "  (%s)", h.Note)
			}
			sb.WriteByte('\n')
		}

		return b.write(sb.String())
	}
}

func (b *Board) header(sb *strings.Builder, title string) {
	fmt.Fprintf(sb, "== %s | restaurant %s | %s ==\n", title, b.restaurantID, b.now().Format(time.RFC3339))
}

// write keeps concurrent views from interleaving their output.
func (b *Board) write(s string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.out, s+"\n")
	return err
}

func (b *Board) age(created time.Time) string {
	return b.now().Sub(created).Truncate(time.Second).String()
}

func itemCount(o models.Order) int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

func itemLabel(it models.OrderItem) string {
	if len(it.Customizations) == 0 {
		return it.Name
	}
	parts := make([]string, 0, len(it.Customizations))
	for _, c := range it.Customizations {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return it.Name + " [" + strings.Join(parts, ", ") + "]"
}

func joinStatuses(sts []models.Status) string {
	if len(sts) == 0 {
		return "-"
	}
	parts := make([]string, len(sts))
	for i, s := range sts {
		parts[i] = string(s)
	}
	return strings.Join(parts, "|")
}
