// Package local is the client-side durable fallback for orders: one JSON file per restaurant,
// read and written as a whole collection.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/app/status"
	"restaurant-orders/internal/order/domain/models"
)

const numberPrefix = "LOC"

type file struct {
	RestaurantID string         `json:"restaurantId"`
	Orders       []models.Order `json:"orders"`
}

type Store struct {
	dir     string
	machine *status.Machine

	mu sync.Mutex
}

func NewStore(dir string, machine *status.Machine) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create fallback dir: %w", err)
	}
	return &Store{dir: dir, machine: machine}, nil
}

func (s *Store) Name() string { return "local" }

// Create stores a new order. An order whose id is already stored is returned unchanged.
func (s *Store) Create(_ context.Context, order models.Order) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(order.RestaurantID)
	if err != nil {
		return models.Order{}, err
	}
	for _, o := range f.Orders {
		if o.ID == order.ID {
			return o.Clone(), nil
		}
	}

	stored := order.Clone()
	stored.OrderNumber = nextNumber(f.Orders, order.CreatedAt.Format("20060102"))
	f.Orders = append(f.Orders, stored)

	if err := s.save(f); err != nil {
		return models.Order{}, err
	}
	return stored.Clone(), nil
}

func (s *Store) List(_ context.Context, restaurantID string, filter models.ListFilter) ([]models.Order, error) {
	s.mu.Lock()
	f, err := s.load(restaurantID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return filter.Apply(f.Orders), nil
}

func (s *Store) Get(_ context.Context, restaurantID, orderID string) (models.Order, error) {
	s.mu.Lock()
	f, err := s.load(restaurantID)
	s.mu.Unlock()
	if err != nil {
		return models.Order{}, err
	}
	for _, o := range f.Orders {
		if o.ID == orderID {
			return o.Clone(), nil
		}
	}
	return models.Order{}, fmt.Errorf("%w: %s", core.ErrOrderNotFound, orderID)
}

// UpdateStatus reads, transitions and writes back under one lock.
func (s *Store) UpdateStatus(_ context.Context, restaurantID, orderID string, target models.Status, note string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(restaurantID)
	if err != nil {
		return models.Order{}, err
	}
	for i, o := range f.Orders {
		if o.ID != orderID {
			continue
		}
		next, err := s.machine.Apply(o, target, note)
		if err != nil {
			return models.Order{}, err
		}
		f.Orders[i] = next
		if err := s.save(f); err != nil {
			return models.Order{}, err
		}
		return next.Clone(), nil
	}
	return models.Order{}, fmt.Errorf("%w: %s", core.ErrOrderNotFound, orderID)
}

func (s *Store) path(restaurantID string) string {
	return filepath.Join(s.dir, "orders_"+url.PathEscape(restaurantID)+".json")
}

func (s *Store) load(restaurantID string) (*file, error) {
	data, err := os.ReadFile(s.path(restaurantID))
	if errors.Is(err, fs.ErrNotExist) {
		return &file{RestaurantID: restaurantID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fallback store: %w", err)
	}

	f := &file{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrLocalStoreCorrupted, s.path(restaurantID), err)
	}
	if f.RestaurantID != restaurantID {
		return nil, fmt.Errorf("%w: %s belongs to %q", core.ErrLocalStoreCorrupted, s.path(restaurantID), f.RestaurantID)
	}
	return f, nil
}

// save writes to a temp file and renames it over the old one.
func (s *Store) save(f *file) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fallback store: %w", err)
	}

	target := s.path(f.RestaurantID)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write fallback store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write fallback store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("write fallback store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write fallback store: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("write fallback store: %w", err)
	}
	return nil
}

// nextNumber returns LOC_<day>_NNN, one above the highest number used that day.
func nextNumber(orders []models.Order, day string) string {
	prefix := numberPrefix + "_" + day + "_"
	highest := 0
	for _, o := range orders {
		if !strings.HasPrefix(o.OrderNumber, prefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(o.OrderNumber, prefix)); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1)
}
