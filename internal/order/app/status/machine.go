// Package status is the only place that decides which order status changes are legal.
package status

import (
	"strings"
	"time"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/domain/models"
)

var successors = map[models.Status][]models.Status{
	models.StatusPending:   {models.StatusAccepted, models.StatusCancelled},
	models.StatusAccepted:  {models.StatusPreparing, models.StatusCancelled},
	models.StatusPreparing: {models.StatusReady},
	models.StatusReady:     {models.StatusDelivered},
}

// CanTransition reports whether to is a legal successor of from.
func CanTransition(from, to models.Status) bool {
	for _, s := range successors[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Next lists the legal successors of from.
func Next(from models.Status) []models.Status {
	return append([]models.Status(nil), successors[from]...)
}

type Machine struct {
	Now func() time.Time
}

func NewMachine() *Machine {
	return &Machine{Now: func() time.Time { return time.Now().UTC() }}
}

// Transition returns a copy of order moved to target with one history entry appended.
// The input order is never modified.
func (m *Machine) Transition(order models.Order, target models.Status, note string) (models.Order, error) {
	if !CanTransition(order.Status, target) {
		return models.Order{}, &core.InvalidTransitionError{From: order.Status, To: target}
	}

	now := m.Now()
	next := order.Clone()
	next.Status = target
	next.UpdatedAt = now
	next.StatusHistory = append(next.StatusHistory, models.StatusHistoryEntry{
		Status:    target,
		Timestamp: now,
		Note:      note,
	})
	return next, nil
}

// Cancel moves order to cancelled with reason as the history note. An order that can no
// longer be cancelled fails with InvalidTransition whatever the reason.
func (m *Machine) Cancel(order models.Order, reason string) (models.Order, error) {
	if !CanTransition(order.Status, models.StatusCancelled) {
		return models.Order{}, &core.InvalidTransitionError{From: order.Status, To: models.StatusCancelled}
	}
	if err := ValidateReason(reason); err != nil {
		return models.Order{}, err
	}
	return m.Transition(order, models.StatusCancelled, strings.TrimSpace(reason))
}

// Apply routes cancelled through Cancel so a reason is always enforced.
func (m *Machine) Apply(order models.Order, target models.Status, note string) (models.Order, error) {
	if target == models.StatusCancelled {
		return m.Cancel(order, note)
	}
	return m.Transition(order, target, note)
}

func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return core.ErrMissingCancellationReason
	}
	return nil
}
