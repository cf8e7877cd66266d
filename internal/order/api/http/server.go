package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"restaurant-orders/internal/order/adapter/viewsync"
	"restaurant-orders/internal/order/api/http/handle"
	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/app/services"
	"restaurant-orders/internal/order/app/status"
	"restaurant-orders/internal/xpkg/config"
	xdb "restaurant-orders/internal/xpkg/db"
	"restaurant-orders/internal/xpkg/logger"

	brokermessage "restaurant-orders/internal/order/adapter/broker_message"
	database "restaurant-orders/internal/order/adapter/db"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	router      chi.Router
	cfg         *config.Config
	srv         *http.Server
	orderParams *core.OrderParams
	mylog       logger.Logger
	db          *xdb.DB
	mb          *brokermessage.RabbitMQ
	bridge      *brokermessage.Bridge
	ctx         context.Context
	mu          sync.Mutex
}

// NewServer returns a server bound to ctx. Cancelling ctx aborts startup retries and stops serving.
func NewServer(ctx context.Context, cfg *config.Config, orderParams *core.OrderParams, mylog logger.Logger) *Server {
	return &Server{
		ctx:         ctx,
		cfg:         cfg,
		orderParams: orderParams,
		mylog:       mylog,
		router:      chi.NewRouter(),
	}
}

// Run connects to postgres and rabbitmq, applies migrations and serves until ctx is done.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	if err := s.initializeDatabase(); err != nil {
		mylog.Action("db_connection_failed").Error("Failed to connect to database", err)
		return err
	}
	mylog.Action("db_connected").Info("Successful database connection")

	if err := s.db.RunMigrations(s.ctx, database.Migrations()); err != nil {
		mylog.Action("db_migration_failed").Error("Failed to apply migrations", err)
		return err
	}

	if err := s.initializeRabbitMQ(); err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}
	mylog.Action("mb_connected").Info("Successful message broker connection")

	s.Configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.orderParams.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Unlock()

	mylog.WithGroup("details").With("port", s.orderParams.Port, "max_concurrent", s.orderParams.MaxConcurrent).Info("server is running")
	return s.startHTTPServer()
}

// Stop shuts the HTTP server down, then waits for event forwards and closes the connections.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down HTTP server...")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, core.WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.bridge != nil {
		s.bridge.Wait()
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.mylog.Action("db_close_failed").Error("Failed to close database", err)
			return fmt.Errorf("db close: %w", err)
		}
		s.mylog.Action("db_closed").Info("Database closed")
	}

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
			return fmt.Errorf("mb close: %w", err)
		}
		s.mylog.Action("mb_closed").Info("Message broker closed")
	}

	s.mylog.Action("graceful_shutdown_completed").Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) initializeDatabase() error {
	if s.cfg.DB == nil {
		return errors.New("database section is missing from config")
	}
	db, err := xdb.Start(s.ctx, s.cfg.DB, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db
	return nil
}

func (s *Server) initializeRabbitMQ() error {
	if s.cfg.RMQ == nil {
		return errors.New("rabbitmq section is missing from config")
	}
	mb, err := brokermessage.New(s.ctx, *s.cfg.RMQ, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	s.mb = mb
	return nil
}

// Configure wires repositories and services and registers the routes.
func (s *Server) Configure() {
	orderRepo := database.NewOrderRepo(s.db, status.NewMachine(), s.mylog)

	s.bridge = brokermessage.NewBridge(viewsync.NewBus(s.mylog), s.mb, s.mylog)
	orderStore := services.NewOrderStore(orderRepo, s.bridge, s.mylog)

	Routes(s.router, handle.NewOrderHandler(orderStore, s.mylog), s.db, s.orderParams.MaxConcurrent, s.mylog)
}

// Routes registers the order API on r.
func Routes(r chi.Router, orderHandler *handle.OrderHandler, db core.IDB, maxConcurrent int, mylog logger.Logger) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(mylog))

	r.Get("/health", handle.Health(db))

	r.Group(func(r chi.Router) {
		r.Use(limitConcurrent(maxConcurrent))

		r.Get("/restaurants/{restaurantID}/orders", orderHandler.List())
		r.Post("/restaurants/{restaurantID}/orders", orderHandler.Create())
		r.Get("/orders/{orderID}", orderHandler.Get())
		r.Patch("/orders/{orderID}/status", orderHandler.UpdateStatus())
	})
}
