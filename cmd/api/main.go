package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	appevents "github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/application/sale"
	"github.com/jhoicas/pos-ledger/internal/application/transfer"
	"github.com/jhoicas/pos-ledger/internal/domain/authz"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	infraevents "github.com/jhoicas/pos-ledger/internal/infrastructure/events"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/pos-ledger/internal/interfaces/http"
	"github.com/jhoicas/pos-ledger/pkg/config"
	"github.com/jhoicas/pos-ledger/pkg/logger"
	"github.com/jhoicas/pos-ledger/pkg/tracing"
)

func main() {
	// .env opcional en desarrollo; las variables del entorno tienen prioridad
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.StorageDriver).
		Str("events", cfg.Events.Driver).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx := context.Background()

	shutdownTracing := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		shutdownTracing, err = tracing.Setup(ctx, tracing.Config{
			ServiceName: cfg.App.Name,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.App.Env != "production",
		})
		if err != nil {
			log.Fatal().Err(err).Msg("configurar tracing")
		}
	}

	txRunner, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer closeStorage()

	dispatcher, err := openEvents(cfg.Events, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar sink de eventos")
	}
	var publisher appevents.Publisher = appevents.Nop{}
	if dispatcher != nil {
		publisher = dispatcher
	}

	policy := authz.NewPolicy()
	ledgerUC := inventory.NewLedgerUseCase(txRunner, policy, publisher, log)
	transferUC := transfer.NewUseCase(txRunner, policy, publisher, log)
	saleUC := sale.NewUseCase(txRunner, policy, publisher, sale.Config{
		Pricing: sale.PricingConfig{
			TaxRate:            cfg.Sale.TaxRate,
			LoyaltyPointValue:  cfg.Sale.LoyaltyPointValue,
			LoyaltyAccrualRate: cfg.Sale.LoyaltyAccrualRate,
		},
		InvoicePrefix: cfg.Sale.InvoicePrefix,
	}, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.Tracing())
	app.Use(httpRouter.RequestLogger(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:    ledgerUC,
		Transfers: transferUC,
		Sales:     saleUC,
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
	if dispatcher != nil {
		if err := dispatcher.Close(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("cierre del dispatcher de eventos")
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("flush de trazas")
	}

	log.Info().Msg("aplicación detenida")
}

// openStorage devuelve el TxRunner del driver configurado y su función de cierre.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.TxRunner, func(), error) {
	if cfg.App.StorageDriver == config.StorageDriverMemory {
		log.Warn().Msg("usando store en memoria con datos de demostración; no persiste entre reinicios")
		return memory.NewDemoStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info().Msg("esquema verificado")
	}
	return postgres.NewTxRunner(pool), pool.Close, nil
}

// openEvents construye el dispatcher sobre el sink configurado; nil con driver none.
func openEvents(cfg config.EventsConfig, log *logger.Logger) (*infraevents.Dispatcher, error) {
	var sink infraevents.Sink
	switch strings.ToLower(cfg.Driver) {
	case config.EventsDriverNone:
		return nil, nil
	case config.EventsDriverKafka:
		ks, err := infraevents.NewKafkaSink(cfg.Brokers, cfg.Topic)
		if err != nil {
			return nil, err
		}
		sink = ks
	case config.EventsDriverLog, "":
		sink = infraevents.NewLogSink(log)
	default:
		return nil, fmt.Errorf("EVENTS_DRIVER desconocido: %q", cfg.Driver)
	}
	return infraevents.NewDispatcher(sink, cfg.Buffer, log), nil
}
