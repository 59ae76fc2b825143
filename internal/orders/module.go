// Package orders provides the orders bounded context: the customer order
// view, the offline payment ledger, and UPI payment QR codes. Orders are
// created by the inquiries module when a quote is accepted.
package orders

import (
	"printstudio_backend/internal/events"
	apphttp "printstudio_backend/internal/http"
	"printstudio_backend/internal/orders/handler"
	"printstudio_backend/internal/orders/repository"
	"printstudio_backend/internal/orders/service"
	"printstudio_backend/platform/config"
	"printstudio_backend/platform/logger"
	"printstudio_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the orders bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the orders module.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, paymentCfg config.PaymentConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, paymentCfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "orders"
}

// Repository returns the repository for the inquiry conversion adapter.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts order routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/orders/my", m.handler.ListMine)
	ctx.Protected.GET("/orders/my/:id", m.handler.GetMine)
	ctx.Protected.GET("/orders/:id/payments", m.handler.GetPayments)
	ctx.Protected.GET("/orders/:id/payment-qr", m.handler.PaymentQR)

	adminGroup := ctx.Admin.Group("/orders")
	adminGroup.GET("", m.handler.List)
	adminGroup.POST("/:id/payments", m.handler.RecordPayment)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
