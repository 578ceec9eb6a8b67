package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pos-backoffice/internal/handler"
	"pos-backoffice/internal/idempotency"
	"pos-backoffice/internal/middleware"
	"pos-backoffice/internal/model"
	"pos-backoffice/internal/notify"
	"pos-backoffice/internal/repository"
	"pos-backoffice/internal/service"
	"pos-backoffice/internal/storage"
	"pos-backoffice/internal/worker"
	"pos-backoffice/internal/ws"
	"pos-backoffice/pkg/config"
	"pos-backoffice/pkg/database"
	"pos-backoffice/pkg/jwt"
	"pos-backoffice/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// 1. Config & logger
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Database
	db, err := database.ConnectDB(cfg.DSN(), log)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&model.Tenant{},
		&model.User{},
		&model.Product{},
		&model.Customer{},
		&model.Sale{},
		&model.Expense{},
		&model.TenantBillingTransaction{},
	); err != nil {
		log.Fatal("auto migrate failed", zap.Error(err))
	}
	database.EnsureStockProcedure(db, log)

	// 3. Idempotency store (optional)
	var idem idempotency.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable, idempotency falls back to the sales table", zap.Error(err))
		} else {
			idem = idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)
			log.Info("redis idempotency store enabled", zap.String("addr", cfg.RedisAddr))
		}
		cancel()
		defer rdb.Close()
	}

	// 4. WebSocket hub & notifications
	hub := ws.NewHub(log)
	go hub.Run(ctx)
	notifier := notify.NewHubNotifier(hub, log)
	receipts := storage.NewLocalFileStore(cfg.ReceiptDir, cfg.ReceiptBaseURL)
	tokens := jwt.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	// 5. Dependency Injection (Wiring Layers)
	tenantRepo := repository.NewTenantRepo(db)
	userRepo := repository.NewUserRepo(db)
	productRepo := repository.NewProductRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	customerRepo := repository.NewCustomerRepo(db)
	expenseRepo := repository.NewExpenseRepo(db)
	billingRepo := repository.NewBillingRepo(db)
	reportRepo := repository.NewReportRepo(db)

	overdueAfter := time.Duration(cfg.OverdueAfterDays) * 24 * time.Hour
	billingService := service.NewBillingService(billingRepo, tenantRepo, receipts, notifier, log, overdueAfter)
	gateService := service.NewGateService(tenantRepo, billingService, log)
	authService := service.NewAuthService(userRepo, tokens, hub, log)
	userService := service.NewUserService(userRepo, log)
	tenantService := service.NewTenantService(tenantRepo, userRepo, billingService, notifier, log)
	saleService := service.NewSaleService(saleRepo, productRepo, tenantRepo, customerRepo, idem, hub, log)
	invService := service.NewInventoryService(productRepo, hub, log)
	expenseService := service.NewExpenseService(expenseRepo, productRepo, log)
	customerService := service.NewCustomerService(customerRepo)
	dashService := service.NewDashboardService(reportRepo, productRepo, tenantRepo)

	seedSuperadmin(ctx, cfg, userService, log)

	h := &handlers{
		auth:      handler.NewAuthHandler(authService, gateService, cfg.SuspensionPollInterval),
		sale:      handler.NewSaleHandler(saleService),
		billing:   handler.NewBillingHandler(billingService, log),
		tenant:    handler.NewTenantHandler(tenantService),
		inventory: handler.NewInventoryHandler(invService),
		expense:   handler.NewExpenseHandler(expenseService),
		customer:  handler.NewCustomerHandler(customerService),
		dashboard: handler.NewDashboardHandler(dashService),
		user:      handler.NewUserHandler(userService),
		ws:        handler.NewWSHandler(hub, authService),
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "POS Back Office",
		BodyLimit:    12 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: strings.Join(cfg.CORSOrigins, ",")}))
	app.Use(middleware.RequestLogger(log))

	loginLimiter := middleware.NewLimiter(cfg.LoginRatePerMinute)
	go sweepLimiter(ctx, loginLimiter)

	registerRoutes(app, h, routeDeps{
		auth:         authService,
		gate:         gateService,
		loginLimiter: loginLimiter,
		receiptDir:   cfg.ReceiptDir,
		receiptURL:   cfg.ReceiptBaseURL,
		log:          log,
	})

	// 7. Background workers
	go worker.NewOverdueWorker(billingService, log, cfg.OverdueSweepInterval).Start(ctx)

	// 8. Serve & graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()
	log.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))

	<-ctx.Done()
	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("server exited")
}

func seedSuperadmin(ctx context.Context, cfg *config.Config, users service.UserService, log *zap.Logger) {
	if cfg.SuperadminPassword == "" {
		log.Info("SUPERADMIN_PASSWORD not set, skipping superadmin seed")
		return
	}
	user, created, err := users.EnsureSuperadmin(ctx, cfg.SuperadminEmail, cfg.SuperadminPassword)
	if err != nil {
		log.Warn("superadmin seed failed", zap.Error(err))
		return
	}
	if created {
		log.Info("superadmin created", zap.String("email", user.Email))
	}
}

func sweepLimiter(ctx context.Context, l *middleware.Limiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
