package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/domain/models"
	"restaurant-orders/internal/xpkg/logger"

	"golang.org/x/sync/singleflight"
)

// ViewFunc re-reads the store and re-renders one view.
type ViewFunc func(ctx context.Context) error

// Refresher keeps one view in step with a restaurant's orders. It refreshes on every sync
// event for the restaurant and on a fixed poll interval. A refresh requested while another is
// in flight joins the running one.
type Refresher struct {
	name         string
	restaurantID string
	sync         core.ISyncChannel
	interval     time.Duration
	view         ViewFunc
	mylog        logger.Logger

	group     singleflight.Group
	completed atomic.Int64

	// mu orders wg.Add against the final wg.Wait; handlers copied by a publish
	// may still fire after unsubscribe.
	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewRefresher(
	name, restaurantID string,
	sync core.ISyncChannel,
	interval time.Duration,
	view ViewFunc,
	mylog logger.Logger,
) *Refresher {
	return &Refresher{
		name:         name,
		restaurantID: restaurantID,
		sync:         sync,
		interval:     interval,
		view:         view,
		mylog:        mylog.With("view", name, "restaurant_id", restaurantID),
	}
}

// Refresh runs the view once, or waits for the refresh already running.
func (r *Refresher) Refresh(ctx context.Context) error {
	ch := r.group.DoChan(r.name+"/"+r.restaurantID, func() (any, error) {
		start := time.Now()
		if err := r.view(ctx); err != nil {
			r.mylog.Action("refresh_failed").Error("View refresh failed", err)
			return nil, err
		}
		r.completed.Add(1)
		r.mylog.Action("refresh_completed").Debug("View refreshed", "duration_ms", time.Since(start).Milliseconds())
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Completed counts successful refreshes.
func (r *Refresher) Completed() int64 {
	return r.completed.Load()
}

// Run refreshes once, then on events and ticks until ctx is done. Subscriptions are
// released before it returns.
func (r *Refresher) Run(ctx context.Context) error {
	trigger := func(event models.SyncEvent) {
		if event.RestaurantID != r.restaurantID {
			return
		}
		r.mylog.Action("sync_event_received").Debug("Sync event received", "event", event.Name)
		r.refreshAsync(ctx)
	}

	r.mu.Lock()
	r.stopped = false
	r.mu.Unlock()

	defer r.stop()
	unsubCreated := r.sync.Subscribe(models.EventOrderCreated, trigger)
	defer unsubCreated()
	unsubUpdated := r.sync.Subscribe(models.EventOrderUpdated, trigger)
	defer unsubUpdated()

	_ = r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.refreshAsync(ctx)
		}
	}
}

// stop refuses further async refreshes and waits for the running ones.
func (r *Refresher) stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Refresher) refreshAsync(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || ctx.Err() != nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.Refresh(ctx)
	}()
}
