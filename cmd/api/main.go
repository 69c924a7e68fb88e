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

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"dualledger/internal/app"
	"dualledger/internal/config"
	"dualledger/internal/handlers"
	"dualledger/internal/logger"
	"dualledger/internal/middleware"

	_ "dualledger/internal/docs" // Import swagger docs
)

// @title           DualLedger API
// @version         1.0
// @description     Two-currency personal ledger: tagged income and expenses, monthly budgets with rollover, savings goals and exchange rates.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 30 * time.Second

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(appConfig, true)
	if err != nil {
		return err
	}
	defer a.Close()

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	go a.Refresher.Start(workerCtx)

	server := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting DualLedger server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Infow("Shutting down server", "signal", sig.String())
	}

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

func newRouter(a *app.App) *gin.Engine {
	cfg := a.Config

	tagHandler := handlers.NewTagHandler(a.Tags, a.Audit)
	transactionHandler := handlers.NewTransactionHandler(a.Transactions, a.Audit)
	ledgerHandler := handlers.NewLedgerHandler(a.Ledger)
	budgetHandler := handlers.NewBudgetHandler(a.Budgets, a.Audit)
	goalHandler := handlers.NewGoalHandler(a.Goals, a.Audit)
	fixedExpenseHandler := handlers.NewFixedExpenseHandler(a.FixedExpenses, a.Audit)
	rateHandler := handlers.NewRateHandler(a.Rates)
	pipelineHandler := handlers.NewPipelineHandler(a.Rates, a.Budgets, a.FixedExpenses)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		sqlDB, err := a.DB.DB().DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Machine-to-machine routes
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(cfg.PipelineAPIKey))
	pipeline.POST("/rates/refresh", pipelineHandler.RefreshRates)
	pipeline.POST("/budgets/rollover", pipelineHandler.RunRollover)
	pipeline.POST("/fixed-expenses/generate", pipelineHandler.GenerateFixedExpenses)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	tags := protected.Group("/tags")
	tags.POST("", tagHandler.CreateTag)
	tags.GET("", tagHandler.GetTags)
	tags.DELETE("/:id", tagHandler.DeleteTag)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	ledger := protected.Group("/ledger")
	ledger.GET("/balance", ledgerHandler.GetBalance)
	ledger.GET("/summary", ledgerHandler.GetSummary)
	ledger.GET("/history", ledgerHandler.GetHistory)
	ledger.GET("/dashboard", ledgerHandler.GetDashboard)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.POST("/rollover", budgetHandler.RunRollover)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/progress", budgetHandler.GetBudgetProgress)

	goals := protected.Group("/goals")
	goals.POST("", goalHandler.CreateGoal)
	goals.GET("", goalHandler.GetGoals)
	goals.GET("/:id", goalHandler.GetGoal)
	goals.DELETE("/:id", goalHandler.DeleteGoal)
	goals.GET("/:id/progress", goalHandler.GetGoalProgress)
	goals.PATCH("/:id/installments/:installmentId", goalHandler.SetInstallmentCompleted)

	fixedExpenses := protected.Group("/fixed-expenses")
	fixedExpenses.POST("", fixedExpenseHandler.CreateFixedExpense)
	fixedExpenses.GET("", fixedExpenseHandler.GetFixedExpenses)
	fixedExpenses.POST("/generate", fixedExpenseHandler.Generate)
	fixedExpenses.PATCH("/:id/active", fixedExpenseHandler.SetFixedExpenseActive)
	fixedExpenses.DELETE("/:id", fixedExpenseHandler.DeleteFixedExpense)

	rates := protected.Group("/rates")
	rates.GET("/current", rateHandler.GetCurrentRate)
	rates.GET("/history", rateHandler.GetRateHistory)

	return router
}
