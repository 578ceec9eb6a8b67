package main

import (
	"strings"

	"pos-backoffice/internal/handler"
	"pos-backoffice/internal/middleware"
	"pos-backoffice/internal/model"
	"pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type handlers struct {
	auth      *handler.AuthHandler
	sale      *handler.SaleHandler
	billing   *handler.BillingHandler
	tenant    *handler.TenantHandler
	inventory *handler.InventoryHandler
	expense   *handler.ExpenseHandler
	customer  *handler.CustomerHandler
	dashboard *handler.DashboardHandler
	user      *handler.UserHandler
	ws        *handler.WSHandler
}

type routeDeps struct {
	auth         middleware.Authenticator
	gate         service.GateService
	loginLimiter *middleware.Limiter
	receiptDir   string
	receiptURL   string
	log          *zap.Logger
}

func registerRoutes(app *fiber.App, h *handlers, d routeDeps) {
	can := middleware.RequireCapability

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/ws", h.ws.Upgrade, h.ws.Serve())

	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", middleware.RateLimit(d.loginLimiter), h.auth.Login)
	auth.Post("/reset-password", middleware.RateLimit(d.loginLimiter), h.auth.ResetPassword)
	auth.Post("/validate-token", h.auth.ValidateToken)

	// Group middleware applies to every /api/v1 route registered after it,
	// so each group below only adds its own layer.

	// ============ AUTHENTICATED, NOT GATED ============
	// Reachable while the tenant is suspended.
	authed := api.Group("", middleware.RequireAuth(d.auth))
	authed.Post("/auth/logout", h.auth.Logout)
	authed.Post("/auth/heartbeat", h.auth.Heartbeat)
	authed.Get("/session/status", h.auth.SessionStatus)

	// ============ AUTHENTICATED + GATED ============
	protected := api.Group("", middleware.RequireActiveTenant(d.gate, d.log))

	protected.Get("/products", can(model.CapProductView), h.inventory.GetProducts)
	protected.Get("/products/:id", can(model.CapProductView), h.inventory.GetProduct)
	protected.Post("/products", can(model.CapProductCreate), h.inventory.CreateProduct)
	protected.Put("/products/:id", can(model.CapProductUpdate), h.inventory.UpdateProduct)
	protected.Post("/products/:id/purchases", can(model.CapPurchaseCreate), h.inventory.RecordPurchase)

	protected.Post("/sales", can(model.CapSaleCreate), h.sale.CreateSale)
	protected.Get("/sales", can(model.CapSaleView), h.sale.ListSales)
	protected.Get("/sales/:id", can(model.CapSaleView), h.sale.GetSale)

	protected.Get("/expenses", can(model.CapExpenseView), h.expense.ListExpenses)
	protected.Post("/expenses", can(model.CapExpenseCreate), h.expense.CreateExpense)
	protected.Get("/expenses/:id", can(model.CapExpenseView), h.expense.GetExpense)
	protected.Put("/expenses/:id", can(model.CapExpenseUpdate), h.expense.UpdateExpense)
	protected.Delete("/expenses/:id", can(model.CapExpenseUpdate), h.expense.DeleteExpense)
	protected.Put("/expenses/:id/approval", can(model.CapExpenseApprove), h.expense.SetApproval)

	protected.Get("/customers", can(model.CapCustomerView), h.customer.ListCustomers)
	protected.Get("/customers/ranking", can(model.CapCustomerView), h.customer.Ranking)
	protected.Post("/customers", can(model.CapCustomerManage), h.customer.CreateCustomer)
	protected.Put("/customers/:id", can(model.CapCustomerManage), h.customer.UpdateCustomer)
	protected.Delete("/customers/:id", can(model.CapCustomerManage), h.customer.DeleteCustomer)

	protected.Get("/dashboard/summary", can(model.CapDashboardView), h.dashboard.GetSummary)
	protected.Get("/dashboard/sales-movement", can(model.CapDashboardView), h.dashboard.GetSalesMovement)

	protected.Get("/users", can(model.CapUserManage), h.user.GetUsers)
	protected.Post("/users", can(model.CapUserManage), h.user.CreateUser)
	protected.Put("/users/:id", can(model.CapUserManage), h.user.UpdateUser)
	protected.Delete("/users/:id", can(model.CapUserManage), h.user.DeleteUser)

	protected.Get("/billing/balance", can(model.CapBillingView), h.billing.GetBalance)
	protected.Get("/billing/history", can(model.CapBillingView), h.billing.GetHistory)

	// ============ SUPERADMIN ============
	admin := api.Group("/admin", can(model.CapTenantManage))
	admin.Get("/tenants", h.tenant.ListTenants)
	admin.Post("/tenants", h.tenant.CreateTenant)
	admin.Put("/tenants/:id/status", h.tenant.SetStatus)
	admin.Put("/tenants/:id/settings", h.tenant.UpdateSettings)
	admin.Get("/tenants/:id/billing", can(model.CapBillingManage), h.billing.GetTenantHistory)
	admin.Post("/tenants/:id/billing", can(model.CapBillingManage), h.billing.RegisterTransaction)
	admin.Post("/billing/:txId/receipt", can(model.CapBillingManage), h.billing.UploadReceipt)
	admin.Post("/billing/overdue-sweep", can(model.CapBillingManage), h.billing.OverdueSweep)

	// Receipts are stored under <tenant id>/..., so a tenant only reads its own.
	app.Use(d.receiptURL, middleware.RequireAuth(d.auth), can(model.CapBillingView), receiptScope(d.receiptURL))
	app.Static(d.receiptURL, d.receiptDir)
}

func receiptScope(prefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := middleware.GetPrincipal(c)
		if p.Can(model.CapBypassGate) {
			return c.Next()
		}
		rest := strings.TrimPrefix(c.Path(), strings.TrimRight(prefix, "/")+"/")
		if p.TenantID == nil || !strings.HasPrefix(rest, p.TenantID.String()+"/") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Receipt not found"})
		}
		return c.Next()
	}
}
