// Package catalog provides the product and service catalog bounded context.
// It manages configurable product templates, tiered services, and the
// server-side price estimate endpoint.
package catalog

import (
	"printstudio_backend/internal/catalog/handler"
	"printstudio_backend/internal/catalog/repository"
	"printstudio_backend/internal/catalog/service"
	apphttp "printstudio_backend/internal/http"
	"printstudio_backend/platform/logger"
	"printstudio_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the catalog module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public browsing endpoints; only active entries are visible here
	ctx.V1.GET("/products", m.handler.ListProducts)
	ctx.V1.GET("/products/:id", m.handler.GetProduct)
	ctx.V1.GET("/services", m.handler.ListServices)
	ctx.V1.GET("/services/:id", m.handler.GetService)

	// Server-side price estimate for the configurator; requires a signed-in
	// customer like the inquiry flow it feeds
	ctx.Protected.POST("/pricing/estimate", m.handler.Estimate)

	// Admin-only catalog management
	products := ctx.Admin.Group("/catalog/products")
	products.GET("", m.handler.ListProductsAdmin)
	products.POST("", m.handler.CreateProduct)
	products.GET("/:id", m.handler.GetProductAdmin)
	products.PATCH("/:id", m.handler.UpdateProduct)
	products.DELETE("/:id", m.handler.DeleteProduct)

	services := ctx.Admin.Group("/catalog/services")
	services.GET("", m.handler.ListServicesAdmin)
	services.POST("", m.handler.CreateService)
	services.PATCH("/:id", m.handler.UpdateService)
	services.DELETE("/:id", m.handler.DeleteService)
	services.POST("/:id/variants", m.handler.CreateVariant)
	services.PATCH("/:id/variants/:variantId", m.handler.UpdateVariant)
	services.DELETE("/:id/variants/:variantId", m.handler.DeleteVariant)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
