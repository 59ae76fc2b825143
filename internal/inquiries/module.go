// Package inquiries provides the inquiry lifecycle bounded context: inquiry
// submission, admin quoting, the customer decision, and the message thread.
// Accepting a quote converts the inquiry into an order in one transaction.
package inquiries

import (
	"printstudio_backend/internal/events"
	apphttp "printstudio_backend/internal/http"
	"printstudio_backend/internal/inquiries/handler"
	"printstudio_backend/internal/inquiries/repository"
	"printstudio_backend/internal/inquiries/service"
	"printstudio_backend/platform/config"
	"printstudio_backend/platform/logger"
	"printstudio_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the inquiries bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the inquiries module. The catalog port
// validates line items; the converter creates orders inside accept
// transactions.
func NewModule(
	pool *pgxpool.Pool,
	catalog service.Catalog,
	converter repository.OrderConverter,
	eventBus events.Bus,
	quoteCfg config.QuoteConfig,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, catalog, converter, eventBus, quoteCfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "inquiries"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts inquiry routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Customer endpoints
	ctx.Protected.POST("/inquiries", m.handler.Create)
	ctx.Protected.GET("/inquiries/my", m.handler.ListMine)
	ctx.Protected.GET("/inquiries/my/:id", m.handler.GetMine)
	ctx.Protected.DELETE("/inquiries/my/:id", m.handler.DeleteMine)
	ctx.Protected.PATCH("/inquiries/my/:id/respond", m.handler.Respond)
	ctx.Protected.POST("/inquiries/:id/messages", m.handler.AddMessage)

	// Admin-only lifecycle management
	adminGroup := ctx.Admin.Group("/inquiries")
	adminGroup.GET("", m.handler.List)
	adminGroup.GET("/:id", m.handler.Get)
	adminGroup.PATCH("/:id/quote", m.handler.Quote)
	adminGroup.DELETE("/:id", m.handler.Delete)
	adminGroup.POST("/:id/messages", m.handler.AddMessage)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
