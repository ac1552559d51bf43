package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/cotiza-pro/internal/application/auth"
	"github.com/tu-usuario/cotiza-pro/internal/application/catalog"
	"github.com/tu-usuario/cotiza-pro/internal/application/quotation"
	"github.com/tu-usuario/cotiza-pro/internal/infrastructure/mail"
	"github.com/tu-usuario/cotiza-pro/internal/infrastructure/render"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC    *auth.AuthUseCase
	RFQUC     *quotation.Lifecycle
	CatalogUC *catalog.UseCase
	Layouts   *render.Store
	Templates *mail.TemplateStore
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// RFQs (protegido). /stats se registra antes de /:id para que fiber no lo
	// capture como identificador.
	rfqs := protected.Group("/rfqs")
	rfqHandler := NewRFQHandler(deps.RFQUC)
	rfqs.Post("/", rfqHandler.Create)
	rfqs.Get("/", rfqHandler.List)
	rfqs.Get("/stats", rfqHandler.Stats)
	rfqs.Get("/:id", rfqHandler.GetByID)
	rfqs.Post("/:id/send-to-supplier", rfqHandler.SendToSupplier)
	rfqs.Post("/:id/responses", rfqHandler.RecordResponses)
	rfqs.Post("/:id/price", rfqHandler.Price)
	rfqs.Post("/:id/send-to-client", rfqHandler.SendToClient)
	rfqs.Post("/:id/archive", rfqHandler.Archive)
	rfqs.Post("/:id/cancel", rfqHandler.Cancel)
	rfqs.Get("/:id/documents/:kind", rfqHandler.GetDocument)

	// Suppliers (protegido)
	suppliers := protected.Group("/suppliers")
	catalogHandler := NewCatalogHandler(deps.CatalogUC)
	suppliers.Post("/", catalogHandler.CreateSupplier)
	suppliers.Get("/", catalogHandler.ListSuppliers)
	suppliers.Get("/:id", catalogHandler.GetSupplier)
	suppliers.Put("/:id", catalogHandler.UpdateSupplier)
	suppliers.Delete("/:id", catalogHandler.DeleteSupplier)
	suppliers.Post("/:id/brands/:brandId", catalogHandler.AssignBrand)
	suppliers.Delete("/:id/brands/:brandId", catalogHandler.UnassignBrand)

	// Brands (protegido)
	brands := protected.Group("/brands")
	brands.Post("/", catalogHandler.CreateBrand)
	brands.Get("/", catalogHandler.ListBrands)
	brands.Put("/:id/margin", catalogHandler.SetBrandMargin)

	// Configuración administrable (solo admin)
	admin := protected.Group("/admin", RequireRole("admin"))
	adminHandler := NewAdminHandler(deps.Layouts, deps.Templates)
	admin.Post("/layouts/reload", adminHandler.ReloadLayouts)
	admin.Get("/layouts/:kind", adminHandler.GetLayout)
	admin.Put("/layouts/:kind", adminHandler.UpdateLayout)
	admin.Get("/email-templates/:kind", adminHandler.GetEmailTemplate)
	admin.Put("/email-templates/:kind", adminHandler.UpdateEmailTemplate)
	admin.Delete("/email-templates/:kind", adminHandler.ResetEmailTemplate)
}
