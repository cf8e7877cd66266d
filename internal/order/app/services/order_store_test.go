package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restaurant-orders/internal/order/adapter/fallback"
	"restaurant-orders/internal/order/adapter/local"
	"restaurant-orders/internal/order/adapter/remote"
	"restaurant-orders/internal/order/adapter/viewsync"
	"restaurant-orders/internal/order/app/cart"
	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/app/status"
	"restaurant-orders/internal/order/domain/models"
	"restaurant-orders/internal/xpkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vat15 = decimal.NewFromInt(15)

type recorder struct {
	events []models.SyncEvent
}

func (r *recorder) listen(bus *viewsync.Bus) {
	for _, name := range []string{models.EventOrderCreated, models.EventOrderUpdated} {
		bus.Subscribe(name, func(e models.SyncEvent) { r.events = append(r.events, e) })
	}
}

func newLocalOrderStore(t *testing.T) (*OrderStore, *recorder) {
	t.Helper()
	backend, err := local.NewStore(t.TempDir(), status.NewMachine())
	require.NoError(t, err)

	bus := viewsync.NewBus(logger.Nop())
	rec := &recorder{}
	rec.listen(bus)
	return NewOrderStore(backend, bus, logger.Nop()), rec
}

func scenarioItems(t *testing.T) []models.OrderItem {
	t.Helper()
	c := cart.New()
	_, err := c.AddItem(
		models.MenuItemRef{ID: "pizza", Name: "Margherita", UnitPrice: decimal.RequireFromString("25.00"), Available: true},
		cart.WithQuantity(2),
		cart.WithCustomizations(models.Customization{Name: "cheese", Value: "extra", PriceDelta: decimal.RequireFromString("3.00")}),
	)
	require.NoError(t, err)
	return c.ToOrderItems()
}

var (
	dana     = models.Customer{Name: "Dana Lee", Phone: "+1 555 0100"}
	takeaway = models.DeliveryInfo{PaymentMethod: models.PaymentCard, DeliveryMethod: models.DeliveryTakeout}
)

func TestOrderStore_SubmitThenList(t *testing.T) {
	s, rec := newLocalOrderStore(t)
	ctx := context.Background()
	items := scenarioItems(t)

	order, err := s.Submit(ctx, "r-1", items, dana, takeaway, vat15)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, order.Status)
	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, models.StatusPending, order.StatusHistory[0].Status)
	assert.Equal(t, "56.00", order.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "8.40", order.Totals.VATAmount.StringFixed(2))
	assert.Equal(t, "64.40", order.Totals.Total.StringFixed(2))
	assert.NotEmpty(t, order.OrderNumber)

	orders, err := s.List(ctx, "r-1", models.ListFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)

	got := orders[0]
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, order.Status, got.Status)
	assert.True(t, got.Totals.Equal(order.Totals))
	require.Len(t, got.Items, 1)
	assert.Equal(t, items[0].Quantity, got.Items[0].Quantity)
	assert.True(t, got.Items[0].UnitPrice.Equal(items[0].UnitPrice))
	assert.True(t, got.Items[0].LineTotal.Equal(decimal.RequireFromString("56")))

	assert.Equal(t, []models.SyncEvent{{Name: models.EventOrderCreated, RestaurantID: "r-1"}}, rec.events)
}

func TestOrderStore_SubmitEmpty(t *testing.T) {
	s, rec := newLocalOrderStore(t)

	_, err := s.Submit(context.Background(), "r-1", nil, dana, takeaway, vat15)
	assert.ErrorIs(t, err, core.ErrEmptyOrder)

	orders, err := s.List(context.Background(), "r-1", models.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, rec.events)
}

func TestOrderStore_SubmitValidation(t *testing.T) {
	table := 12
	badTable := 101
	tests := []struct {
		name     string
		customer models.Customer
		delivery models.DeliveryInfo
		field    string
	}{
		{name: "no name", customer: models.Customer{Phone: "1"}, delivery: takeaway, field: "customer.name"},
		{name: "no phone", customer: models.Customer{Name: "Dana"}, delivery: takeaway, field: "customer.phone"},
		{name: "bad payment", customer: dana, delivery: models.DeliveryInfo{PaymentMethod: "barter", DeliveryMethod: "takeout"}, field: "paymentMethod"},
		{name: "dine in without table", customer: dana, delivery: models.DeliveryInfo{PaymentMethod: "cash", DeliveryMethod: "dine_in"}, field: "tableNumber"},
		{name: "table out of range", customer: dana, delivery: models.DeliveryInfo{PaymentMethod: "cash", DeliveryMethod: "dine_in", TableNumber: &badTable}, field: "tableNumber"},
		{name: "delivery without address", customer: dana, delivery: models.DeliveryInfo{PaymentMethod: "online", DeliveryMethod: "delivery", DeliveryAddress: "x"}, field: "deliveryAddress"},
		{name: "dine in ok", customer: dana, delivery: models.DeliveryInfo{PaymentMethod: "cash", DeliveryMethod: "dine_in", TableNumber: &table}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newLocalOrderStore(t)
			_, err := s.Submit(context.Background(), "r-1", scenarioItems(t), tt.customer, tt.delivery, vat15)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *core.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestOrderStore_PlaceVerifiesTotal(t *testing.T) {
	s, _ := newLocalOrderStore(t)
	wrong := decimal.RequireFromString("60.00")

	_, err := s.Place(context.Background(), Submission{
		RestaurantID:   "r-1",
		Items:          scenarioItems(t),
		Customer:       dana,
		Delivery:       takeaway,
		VATRatePercent: vat15,
		ExpectedTotal:  &wrong,
	})
	assert.ErrorIs(t, err, core.ErrTotalMismatch)

	right := decimal.RequireFromString("64.4")
	order, err := s.Place(context.Background(), Submission{
		OrderID:        "8f14e45f-ceea-4e1a-a2d6-1c6f0b8f7c11",
		RestaurantID:   "r-1",
		Items:          scenarioItems(t),
		Customer:       dana,
		Delivery:       takeaway,
		VATRatePercent: vat15,
		ExpectedTotal:  &right,
	})
	require.NoError(t, err)
	assert.Equal(t, "8f14e45f-ceea-4e1a-a2d6-1c6f0b8f7c11", order.ID)
}

func TestOrderStore_UpdateStatus(t *testing.T) {
	s, rec := newLocalOrderStore(t)
	ctx := context.Background()

	order, err := s.Submit(ctx, "r-1", scenarioItems(t), dana, takeaway, vat15)
	require.NoError(t, err)

	_, err = s.UpdateStatus(ctx, "r-1", order.ID, models.StatusReady, "")
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	for _, st := range []models.Status{models.StatusAccepted, models.StatusPreparing, models.StatusReady, models.StatusDelivered} {
		order, err = s.UpdateStatus(ctx, "r-1", order.ID, st, "")
		require.NoError(t, err)
		assert.Equal(t, st, order.Status)
	}
	assert.Len(t, order.StatusHistory, 5)

	_, err = s.UpdateStatus(ctx, "r-1", order.ID, models.StatusDelivered, "")
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	_, err = s.UpdateStatus(ctx, "r-1", "missing", models.StatusAccepted, "")
	assert.ErrorIs(t, err, core.ErrOrderNotFound)

	_, err = s.UpdateStatus(ctx, "r-1", order.ID, models.Status("cooking"), "")
	assert.ErrorIs(t, err, core.ErrValidation)

	assert.Len(t, rec.events, 5)
	assert.Equal(t, models.EventOrderUpdated, rec.events[4].Name)
}

func TestOrderStore_Cancel(t *testing.T) {
	s, _ := newLocalOrderStore(t)
	ctx := context.Background()

	order, err := s.Submit(ctx, "r-1", scenarioItems(t), dana, takeaway, vat15)
	require.NoError(t, err)

	_, err = s.Cancel(ctx, "r-1", order.ID, "")
	assert.ErrorIs(t, err, core.ErrMissingCancellationReason)

	cancelled, err := s.Cancel(ctx, "r-1", order.ID, "customer no-show")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, "customer no-show", cancelled.StatusHistory[len(cancelled.StatusHistory)-1].Note)

	got, err := s.Get(ctx, "r-1", order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestOrderStore_UpdateStatusCancelOnFinishedOrder(t *testing.T) {
	s, rec := newLocalOrderStore(t)
	ctx := context.Background()

	order, err := s.Submit(ctx, "r-1", scenarioItems(t), dana, takeaway, vat15)
	require.NoError(t, err)

	_, err = s.UpdateStatus(ctx, "r-1", order.ID, models.StatusCancelled, "")
	assert.ErrorIs(t, err, core.ErrMissingCancellationReason)

	for _, st := range []models.Status{models.StatusAccepted, models.StatusPreparing, models.StatusReady, models.StatusDelivered} {
		_, err = s.UpdateStatus(ctx, "r-1", order.ID, st, "")
		require.NoError(t, err)
	}
	events := len(rec.events)

	_, err = s.UpdateStatus(ctx, "r-1", order.ID, models.StatusCancelled, "")
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
	assert.Len(t, rec.events, events)
}

func TestOrderStore_RemoteTimeoutFallsBackSilently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	localStore, err := local.NewStore(t.TempDir(), status.NewMachine())
	require.NoError(t, err)
	backend := fallback.New(remote.NewClient(srv.URL, 5*time.Second), localStore, 30*time.Millisecond, logger.Nop())
	s := NewOrderStore(backend, viewsync.NewBus(logger.Nop()), logger.Nop())
	ctx := context.Background()

	order, err := s.Submit(ctx, "r-1", scenarioItems(t), dana, takeaway, vat15)
	require.NoError(t, err)
	assert.Contains(t, order.OrderNumber, "LOC_")

	orders, err := s.List(ctx, "r-1", models.ListFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

type brokenBackend struct{}

func (brokenBackend) Name() string { return "broken" }
func (brokenBackend) Create(context.Context, models.Order) (models.Order, error) {
	return models.Order{}, errors.New("disk full")
}
func (brokenBackend) List(context.Context, string, models.ListFilter) ([]models.Order, error) {
	return nil, errors.New("disk full")
}
func (brokenBackend) Get(context.Context, string, string) (models.Order, error) {
	return models.Order{}, errors.New("disk full")
}
func (brokenBackend) UpdateStatus(context.Context, string, string, models.Status, string) (models.Order, error) {
	return models.Order{}, errors.New("disk full")
}

func TestOrderStore_BackendFailureIsNotPublished(t *testing.T) {
	bus := viewsync.NewBus(logger.Nop())
	rec := &recorder{}
	rec.listen(bus)
	s := NewOrderStore(brokenBackend{}, bus, logger.Nop())

	_, err := s.Submit(context.Background(), "r-1", scenarioItems(t), dana, takeaway, vat15)
	assert.EqualError(t, err, "submit order: disk full")
	assert.Empty(t, rec.events)
}
