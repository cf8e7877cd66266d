// Package remote talks to the order service over its JSON API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/domain/dto"
	"restaurant-orders/internal/order/domain/models"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return "remote" }

func (c *Client) Create(ctx context.Context, order models.Order) (models.Order, error) {
	var resp dto.OrderResponse
	path := "/restaurants/" + url.PathEscape(order.RestaurantID) + "/orders"
	if err := c.do(ctx, http.MethodPost, path, dto.NewCreateOrderRequest(order), &resp); err != nil {
		return models.Order{}, err
	}
	return resp.Order, nil
}

func (c *Client) List(ctx context.Context, restaurantID string, filter models.ListFilter) ([]models.Order, error) {
	filter = filter.Normalize()
	q := url.Values{}
	q.Set("limit", strconv.Itoa(filter.Limit))
	q.Set("page", strconv.Itoa(filter.Page))
	for _, st := range filter.Statuses {
		q.Add("status", string(st))
	}
	if filter.OldestFirst {
		q.Set("order", "asc")
	}

	var resp dto.OrdersResponse
	path := "/restaurants/" + url.PathEscape(restaurantID) + "/orders?" + q.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Orders == nil {
		resp.Orders = []models.Order{}
	}
	return resp.Orders, nil
}

func (c *Client) Get(ctx context.Context, restaurantID, orderID string) (models.Order, error) {
	var resp dto.OrderResponse
	path := "/orders/" + url.PathEscape(orderID) + "?restaurantId=" + url.QueryEscape(restaurantID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return models.Order{}, err
	}
	return resp.Order, nil
}

func (c *Client) UpdateStatus(ctx context.Context, restaurantID, orderID string, target models.Status, note string) (models.Order, error) {
	var resp dto.OrderResponse
	body := dto.UpdateStatusRequest{Status: string(target), Note: note, RestaurantID: restaurantID}
	if err := c.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(orderID)+"/status", body, &resp); err != nil {
		return models.Order{}, err
	}
	return resp.Order, nil
}

// do sends one request. Transport failures and server-side failures come back wrapped in
// core.ErrRemoteUnavailable; business rejections come back as their sentinel errors.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrRemoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", core.ErrRemoteUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", core.ErrRemoteUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", core.ErrRemoteUnavailable, err)
		}
		return nil
	}
	return decodeError(resp.StatusCode, data)
}

func decodeError(code int, data []byte) error {
	var body dto.ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil || code >= 500 {
		return fmt.Errorf("%w: status %d", core.ErrRemoteUnavailable, code)
	}

	switch body.Kind {
	case core.KindInvalidTransition:
		return &core.InvalidTransitionError{From: models.Status(body.Current), To: models.Status(body.Target)}
	case core.KindValidation:
		field, msg := body.Field, body.Error
		if field == "" {
			field = "request"
		}
		if prefix := field + ": "; strings.HasPrefix(msg, prefix) {
			msg = strings.TrimPrefix(msg, prefix)
		}
		return &core.ValidationError{Field: field, Message: msg}
	}

	if sentinel := core.ErrorForKind(body.Kind); sentinel != nil && core.IsBusinessError(sentinel) {
		if body.Error == "" || body.Error == sentinel.Error() {
			return sentinel
		}
		return fmt.Errorf("%w: %s", sentinel, body.Error)
	}
	return fmt.Errorf("%w: status %d: %s", core.ErrRemoteUnavailable, code, body.Error)
}
