package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spendwise/internal/config"
	"spendwise/internal/database"
	"spendwise/internal/events"
	"spendwise/internal/handlers"
	"spendwise/internal/logger"
	"spendwise/internal/router"
	"spendwise/internal/services"
	"spendwise/internal/store"
	"spendwise/internal/validator"
)

// @title           Spendwise API
// @version         1.0
// @description     Spendwise tracks expenses against a recurring budget and moves whatever is left at the end of each period into savings.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Cycle-closed events go to AMQP when a broker is configured
	var publisher events.Publisher = events.NopPublisher{}
	if appConfig.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(appConfig.AMQPURL, appConfig.AMQPExchange, appConfig.AMQPQueue)
		if err != nil {
			return fmt.Errorf("failed to connect to message broker: %w", err)
		}
		publisher = amqpPublisher
		log.Infow("publishing cycle events", "exchange", appConfig.AMQPExchange, "queue", appConfig.AMQPQueue)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warnw("failed to close event publisher", "error", err)
		}
	}()

	// Stores
	db := dbManager.DB()
	categoryStore, err := store.NewCategoryStore(appConfig.CategoryCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create category cache: %w", err)
	}
	defer categoryStore.Close()
	ledger := store.NewExpenseLedger()
	savingsStore := store.NewSavingsStore()

	// Initialize services
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db, categoryStore, savingsStore)
	categoryService := services.NewCategoryService(db, categoryStore)
	expenseService := services.NewExpenseService(db, ledger, categoryStore)
	savingsService := services.NewSavingsService(db, savingsStore)
	budgetService := services.NewBudgetCycleService(db, store.NewBudgetCycleStore(), ledger, savingsStore,
		services.WithEditWindow(appConfig.BudgetEditWindow),
		services.WithPublisher(publisher),
	)

	validator.Register()

	engine := router.New(router.Handlers{
		Auth:     handlers.NewAuthHandler(userService, auditService),
		Budget:   handlers.NewBudgetHandler(budgetService, auditService),
		Expense:  handlers.NewExpenseHandler(expenseService, auditService),
		Category: handlers.NewCategoryHandler(categoryService, auditService),
		Savings:  handlers.NewSavingsHandler(savingsService),
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Spendwise backend server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
