package db

import (
	"context"
	"encoding/json"
	"fmt"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/app/status"
	"restaurant-orders/internal/order/domain/models"
	"restaurant-orders/internal/xpkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is the part of the shared database handle the repository needs.
type Pool interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

type OrderRepo struct {
	db      Pool
	machine *status.Machine
	log     logger.Logger
}

func NewOrderRepo(db Pool, machine *status.Machine, log logger.Logger) *OrderRepo {
	return &OrderRepo{
		db:      db,
		machine: machine,
		log:     log,
	}
}

func (or *OrderRepo) Name() string { return "postgres" }

const orderColumns = `
	id::text, order_number, restaurant_id,
	customer_name, customer_phone, customer_email,
	payment_method, delivery_method, table_number, delivery_address, special_instructions,
	subtotal::text, vat_amount::text, total_amount::text, vat_rate_percent::text,
	status, created_at, updated_at`

// Create inserts the order with its items and first status log row. Orders are numbered
// ORD_YYYYMMDD_NNN per restaurant per day; creating an existing id returns the stored order.
func (or *OrderRepo) Create(ctx context.Context, order models.Order) (models.Order, error) {
	log := or.log.Action("order_insert").With("restaurant_id", order.RestaurantID, "order_id", order.ID)

	tx, err := or.db.Begin(ctx)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serializes numbering within a restaurant.
	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, order.RestaurantID); err != nil {
		return models.Order{}, fmt.Errorf("failed to lock restaurant: %w", err)
	}

	day := order.CreatedAt.UTC().Format("20060102")
	var count int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE restaurant_id = $1 AND order_number LIKE $2`,
		order.RestaurantID, "ORD_"+day+"_%",
	).Scan(&count)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to count today's orders: %w", err)
	}
	order.OrderNumber = fmt.Sprintf("ORD_%s_%03d", day, count+1)

	tag, err := tx.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, restaurant_id,
			customer_name, customer_phone, customer_email,
			payment_method, delivery_method, table_number, delivery_address, special_instructions,
			subtotal, vat_amount, total_amount, vat_rate_percent,
			status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO NOTHING`,
		order.ID, order.OrderNumber, order.RestaurantID,
		order.Customer.Name, order.Customer.Phone, order.Customer.Email,
		order.PaymentMethod, order.DeliveryMethod, order.TableNumber, order.DeliveryAddress, order.SpecialInstructions,
		order.Totals.Subtotal.String(), order.Totals.VATAmount.String(), order.Totals.Total.String(), order.VATRatePercent.String(),
		string(order.Status), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		log.Info("Order already exists, returning stored copy")
		_ = tx.Rollback(ctx)
		return or.Get(ctx, "", order.ID)
	}

	for i, item := range order.Items {
		customizations, err := json.Marshal(item.Customizations)
		if err != nil {
			return models.Order{}, fmt.Errorf("failed to encode customizations: %w", err)
		}
		if item.Customizations == nil {
			customizations = []byte("[]")
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (
				order_id, position, menu_item_id, name, unit_price, quantity, notes, customizations, line_total
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)`,
			order.ID, i, item.MenuItemID, item.Name, item.UnitPrice.String(), item.Quantity, item.Notes,
			string(customizations), item.LineTotal.String(),
		)
		if err != nil {
			return models.Order{}, fmt.Errorf("failed to insert item: %w", err)
		}
	}

	for _, entry := range order.StatusHistory {
		if err := insertStatusLog(ctx, tx, order.ID, entry); err != nil {
			return models.Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug("Order inserted", "order_number", order.OrderNumber)
	return order, nil
}

func (or *OrderRepo) List(ctx context.Context, restaurantID string, filter models.ListFilter) ([]models.Order, error) {
	filter = filter.Normalize()

	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}
	direction := "DESC"
	if filter.OldestFirst {
		direction = "ASC"
	}

	q := `SELECT` + orderColumns + `
		FROM orders
		WHERE restaurant_id = $1
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
		ORDER BY created_at ` + direction + `, order_number ` + direction + `
		LIMIT $3 OFFSET $4`

	rows, err := or.db.Query(ctx, q, restaurantID, statuses, filter.Limit, filter.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	if err := loadDetails(ctx, or.db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Get loads one order. An empty restaurantID matches any restaurant.
func (or *OrderRepo) Get(ctx context.Context, restaurantID, orderID string) (models.Order, error) {
	return getOrder(ctx, or.db, restaurantID, orderID, false)
}

// UpdateStatus locks the order row, applies the transition and appends a status log row.
func (or *OrderRepo) UpdateStatus(ctx context.Context, restaurantID, orderID string, target models.Status, note string) (models.Order, error) {
	log := or.log.Action("order_status_update").With("order_id", orderID, "target", target)

	tx, err := or.db.Begin(ctx)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := getOrder(ctx, tx, restaurantID, orderID, true)
	if err != nil {
		return models.Order{}, err
	}

	next, err := or.machine.Apply(current, target, note)
	if err != nil {
		log.Debug("Transition rejected", "current", current.Status)
		return models.Order{}, err
	}

	if _, err = tx.Exec(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		string(next.Status), next.UpdatedAt, next.ID); err != nil {
		return models.Order{}, fmt.Errorf("failed to update order status: %w", err)
	}
	if err := insertStatusLog(ctx, tx, next.ID, next.StatusHistory[len(next.StatusHistory)-1]); err != nil {
		return models.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return next, nil
}

func getOrder(ctx context.Context, q querier, restaurantID, orderID string, forUpdate bool) (models.Order, error) {
	if !isUUID(orderID) {
		return models.Order{}, fmt.Errorf("%w: %s", core.ErrOrderNotFound, orderID)
	}

	sql := `SELECT` + orderColumns + `
		FROM orders
		WHERE id = $1 AND ($2::text = '' OR restaurant_id = $2::text)`
	if forUpdate {
		sql += ` FOR UPDATE`
	}

	rows, err := q.Query(ctx, sql, orderID, restaurantID)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return models.Order{}, err
	}
	if len(orders) == 0 {
		return models.Order{}, fmt.Errorf("%w: %s", core.ErrOrderNotFound, orderID)
	}
	if err := loadDetails(ctx, q, orders); err != nil {
		return models.Order{}, err
	}
	return orders[0], nil
}

func collectOrders(rows pgx.Rows) ([]models.Order, error) {
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var (
			o                          models.Order
			st                         string
			subtotal, vat, total, rate string
		)
		err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.RestaurantID,
			&o.Customer.Name, &o.Customer.Phone, &o.Customer.Email,
			&o.PaymentMethod, &o.DeliveryMethod, &o.TableNumber, &o.DeliveryAddress, &o.SpecialInstructions,
			&subtotal, &vat, &total, &rate,
			&st, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		if o.Totals, err = parseTotals(subtotal, vat, total); err != nil {
			return nil, err
		}
		if o.VATRatePercent, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("failed to parse vat rate: %w", err)
		}
		o.Status = models.Status(st)
		o.CreatedAt = o.CreatedAt.UTC()
		o.UpdatedAt = o.UpdatedAt.UTC()
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	return orders, nil
}

// loadDetails fills items and status history for all orders in two queries.
func loadDetails(ctx context.Context, q querier, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := q.Query(ctx, `
		SELECT order_id::text, menu_item_id, name, unit_price::text, quantity, notes, customizations::text, line_total::text
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}
	for rows.Next() {
		var (
			orderID, unitPrice, customizations, lineTotal string
			item                                          models.OrderItem
		)
		if err := rows.Scan(&orderID, &item.MenuItemID, &item.Name, &unitPrice, &item.Quantity, &item.Notes, &customizations, &lineTotal); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan item: %w", err)
		}
		if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			rows.Close()
			return fmt.Errorf("failed to parse unit price: %w", err)
		}
		if item.LineTotal, err = decimal.NewFromString(lineTotal); err != nil {
			rows.Close()
			return fmt.Errorf("failed to parse line total: %w", err)
		}
		if err := json.Unmarshal([]byte(customizations), &item.Customizations); err != nil {
			rows.Close()
			return fmt.Errorf("failed to decode customizations: %w", err)
		}
		if len(item.Customizations) == 0 {
			item.Customizations = nil
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read items: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT order_id::text, status, changed_at, note
		FROM order_status_log
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, changed_at, id`, ids)
	if err != nil {
		return fmt.Errorf("failed to load status history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID, st string
			entry       models.StatusHistoryEntry
		)
		if err := rows.Scan(&orderID, &st, &entry.Timestamp, &entry.Note); err != nil {
			return fmt.Errorf("failed to scan status log: %w", err)
		}
		entry.Status = models.Status(st)
		entry.Timestamp = entry.Timestamp.UTC()
		i := index[orderID]
		orders[i].StatusHistory = append(orders[i].StatusHistory, entry)
	}
	return rows.Err()
}

func insertStatusLog(ctx context.Context, tx pgx.Tx, orderID string, entry models.StatusHistoryEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at, note)
		VALUES ($1, $2, $3, $4, $5)`,
		orderID, string(entry.Status), core.DefaultChangedBy, entry.Timestamp, entry.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}
	return nil
}

func parseTotals(subtotal, vat, total string) (models.PricedTotals, error) {
	var (
		t   models.PricedTotals
		err error
	)
	if t.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return t, fmt.Errorf("failed to parse subtotal: %w", err)
	}
	if t.VATAmount, err = decimal.NewFromString(vat); err != nil {
		return t, fmt.Errorf("failed to parse vat amount: %w", err)
	}
	if t.Total, err = decimal.NewFromString(total); err != nil {
		return t, fmt.Errorf("failed to parse total: %w", err)
	}
	return t, nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
