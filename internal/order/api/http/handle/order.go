package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/app/services"
	"restaurant-orders/internal/order/domain/dto"
	"restaurant-orders/internal/order/domain/models"
	"restaurant-orders/internal/xpkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxListLimit = 200

type OrderHandler struct {
	store *services.OrderStore
	mylog logger.Logger
}

func NewOrderHandler(store *services.OrderStore, mylog logger.Logger) *OrderHandler {
	return &OrderHandler{
		store: store,
		mylog: mylog,
	}
}

// Create handles POST /restaurants/{restaurantID}/orders.
func (oh *OrderHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID := chi.URLParam(r, "restaurantID")

		var req dto.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			oh.mylog.Action("parse_failed").Error("Failed to parse order", err)
			jsonError(w, http.StatusBadRequest, &core.ValidationError{Field: "body", Message: "failed to parse JSON"})
			return
		}
		if req.ID != "" {
			if _, err := uuid.Parse(req.ID); err != nil {
				jsonError(w, http.StatusBadRequest, &core.ValidationError{Field: "id", Message: "must be a UUID"})
				return
			}
		}
		oh.mylog.Action("received").Debug("Received order", "restaurant_id", restaurantID, "number_of_items", len(req.Items))

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		total := req.TotalAmount
		order, err := oh.store.Place(ctx, services.Submission{
			OrderID:        req.ID,
			RestaurantID:   restaurantID,
			Items:          req.Items,
			Customer:       req.Customer,
			Delivery:       req.DeliveryInfo,
			VATRatePercent: req.VATRatePercent,
			ExpectedTotal:  &total,
		})
		if err != nil {
			oh.fail(w, "create_failed", err)
			return
		}

		jsonResponse(w, http.StatusCreated, dto.OrderResponse{Order: order})
	}
}

// List handles GET /restaurants/{restaurantID}/orders.
func (oh *OrderHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseListFilter(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		orders, err := oh.store.List(ctx, chi.URLParam(r, "restaurantID"), filter)
		if err != nil {
			oh.fail(w, "list_failed", err)
			return
		}
		jsonResponse(w, http.StatusOK, dto.OrdersResponse{Orders: orders})
	}
}

// Get handles GET /orders/{orderID}.
func (oh *OrderHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		order, err := oh.store.Get(ctx, r.URL.Query().Get("restaurantId"), chi.URLParam(r, "orderID"))
		if err != nil {
			oh.fail(w, "get_failed", err)
			return
		}
		jsonResponse(w, http.StatusOK, dto.OrderResponse{Order: order})
	}
}

// UpdateStatus handles PATCH /orders/{orderID}/status.
func (oh *OrderHandler) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, &core.ValidationError{Field: "body", Message: "failed to parse JSON"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		order, err := oh.store.UpdateStatus(ctx, req.RestaurantID, chi.URLParam(r, "orderID"), models.Status(req.Status), req.Note)
		if err != nil {
			oh.fail(w, "update_status_failed", err)
			return
		}
		jsonResponse(w, http.StatusOK, dto.OrderResponse{Order: order})
	}
}

func (oh *OrderHandler) fail(w http.ResponseWriter, action string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		oh.mylog.Action(action).Error("Request failed", err)
	} else {
		oh.mylog.Action(action).Debug("Request rejected", "reason", err.Error())
	}
	jsonError(w, code, err)
}

func parseListFilter(r *http.Request) (models.ListFilter, error) {
	q := r.URL.Query()
	filter := models.ListFilter{OldestFirst: q.Get("order") == "asc"}

	var err error
	if filter.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Page, err = intParam(q.Get("page"), "page"); err != nil {
		return filter, err
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	for _, raw := range q["status"] {
		st, ok := models.ParseStatus(raw)
		if !ok {
			return filter, &core.ValidationError{Field: "status", Message: "unknown status " + strconv.Quote(raw)}
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	return filter, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &core.ValidationError{Field: name, Message: "must be a non-negative integer"}
	}
	return n, nil
}

// Health handles GET /health.
func Health(db core.IDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.IsAlive(ctx); err != nil {
			jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": err.Error()})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
