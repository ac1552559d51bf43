package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tu-usuario/cotiza-pro/internal/application/auth"
	"github.com/tu-usuario/cotiza-pro/internal/application/catalog"
	"github.com/tu-usuario/cotiza-pro/internal/application/pricing"
	"github.com/tu-usuario/cotiza-pro/internal/application/quotation"
	"github.com/tu-usuario/cotiza-pro/internal/infrastructure/mail"
	infrapdf "github.com/tu-usuario/cotiza-pro/internal/infrastructure/pdf"
	"github.com/tu-usuario/cotiza-pro/internal/infrastructure/postgres"
	"github.com/tu-usuario/cotiza-pro/internal/infrastructure/render"
	httpRouter "github.com/tu-usuario/cotiza-pro/internal/interfaces/http"
	"github.com/tu-usuario/cotiza-pro/pkg/config"
	"github.com/tu-usuario/cotiza-pro/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	rfqRepo := postgres.NewRFQRepository(pool)
	supplierRepo := postgres.NewSupplierRepository(pool)
	brandRepo := postgres.NewBrandRepository(pool)
	docRepo := postgres.NewDocumentRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Motor de layout: defaults embebidos + overrides persistidos en disco.
	layoutStore, err := render.NewStore(cfg.Layout.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Layout.Path).Msg("cargar layouts de documentos")
	}
	renderer := render.NewRenderer(layoutStore, infrapdf.NewMarotoBackend(), log.Zerolog())

	// Correo: la estrategia (Graph o SMTP) se decide aquí, una sola vez.
	// Sin canal configurado la aplicación no arranca: toda transición de envío
	// lo necesita.
	dispatcher, err := mail.NewDispatcher(
		mail.SMTPConfig{
			Host:    cfg.SMTP.Host,
			Port:    cfg.SMTP.Port,
			Account: cfg.SMTP.Account,
			Secret:  cfg.SMTP.Secret,
		},
		mail.GraphConfig{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       cfg.Graph.Sender,
		},
		log.Zerolog(),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("canal de correo")
	}
	templates := mail.NewTemplateStore()

	calc := pricing.NewCalculator(cfg.Quotation.Currency, int32(cfg.Quotation.Precision))

	rfqUC := quotation.NewLifecycle(
		txRunner, rfqRepo, supplierRepo, brandRepo, docRepo,
		calc, renderer, dispatcher, templates,
	)
	catalogUC := catalog.NewUseCase(supplierRepo, brandRepo, rfqRepo)
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "CotizaPro API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:    authUC,
		RFQUC:     rfqUC,
		CatalogUC: catalogUC,
		Layouts:   layoutStore,
		Templates: templates,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
