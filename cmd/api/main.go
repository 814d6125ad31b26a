package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geopin/internal/adapters/http"
	"github.com/samirrijal/geopin/internal/adapters/memory"
	"github.com/samirrijal/geopin/internal/adapters/mongo"
	"github.com/samirrijal/geopin/internal/adapters/mqtt"
	natsadapter "github.com/samirrijal/geopin/internal/adapters/nats"
	"github.com/samirrijal/geopin/internal/adapters/notify"
	"github.com/samirrijal/geopin/internal/adapters/postgres"
	"github.com/samirrijal/geopin/internal/adapters/static"
	"github.com/samirrijal/geopin/internal/adapters/valkey"
	"github.com/samirrijal/geopin/internal/core/domain"
	"github.com/samirrijal/geopin/internal/core/ports"
	"github.com/samirrijal/geopin/internal/core/usecases"
	"github.com/samirrijal/geopin/internal/pkg/config"
	"github.com/samirrijal/geopin/internal/pkg/geospatial"
	"github.com/samirrijal/geopin/internal/pkg/logging"
	"github.com/samirrijal/geopin/internal/pkg/telemetry"
)

// kvStore is what the session needs from a backend plus the readiness probe.
type kvStore interface {
	ports.KeyValueStore
	ports.Pinger
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load("geopin-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Marker storage
	store, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer closeStore()

	// NATS
	var nc *nats.Conn
	if cfg.NATS.Enabled {
		nc, err = natsadapter.Connect(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer nc.Close()
		}
	}

	// Position source
	positions, closePositions, err := openPositions(cfg, nc)
	if err != nil {
		log.Fatalf("position source: %v", err)
	}
	defer closePositions()

	// Fan-out: logs, map displays, and NATS when connected.
	hub := http.NewHub()
	notifiers := []ports.Notifier{notify.NewLog(nil), hub}
	publishers := []ports.StatePublisher{hub}
	if nc != nil {
		pub, err := natsadapter.NewPublisher(nc)
		if err != nil {
			slog.Warn("nats publisher unavailable", "error", err)
		} else {
			notifiers = append(notifiers, pub)
			publishers = append(publishers, pub)
		}
	}

	latitudeDelta, err := geospatial.ParseLatitudeMode(cfg.Geo.LatitudeMode)
	if err != nil {
		log.Fatalf("geo: %v", err)
	}

	session := usecases.NewSessionService(positions, usecases.NewMarkerStore(store),
		usecases.WithNotifier(notify.Fanout(notifiers...)),
		usecases.WithLatitudeDelta(latitudeDelta),
		usecases.WithCapabilityTimeout(cfg.Capabilities.Timeout),
	)
	unsubscribe := session.Subscribe(func(st domain.SessionState) {
		for _, p := range publishers {
			if err := p.PublishState(ctx, st); err != nil {
				slog.Warn("publish state", "version", st.Version, "error", err)
			}
		}
	})
	defer unsubscribe()

	session.Start(ctx)

	deps := &http.Dependencies{
		Session:     session,
		Hub:         hub,
		Store:       store,
		StoreDriver: cfg.Storage.Driver,
		NATS:        nc,
		RateLimit:   cfg.Server.RateLimit,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "geopin API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr,
			"storage", cfg.Storage.Driver, "position", cfg.Position.Driver)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	cancel()
	_ = session.Wait()

	slog.Info("server stopped")
}

func openStore(ctx context.Context, cfg config.StorageConfig) (kvStore, func(), error) {
	switch cfg.Driver {
	case config.StorageValkey:
		s, err := valkey.New(valkey.Options{
			Addr:     cfg.Valkey.Addr,
			Password: cfg.Valkey.Password,
			DB:       cfg.Valkey.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.StoragePostgres:
		db, err := postgres.New(ctx, cfg.Postgres.DSN(), cfg.Postgres.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		s := postgres.NewKVStore(db)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil

	case config.StorageMongo:
		s, err := mongo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Close(closeCtx)
		}, nil

	case config.StorageMemory:
		slog.Warn("memory storage selected, markers are lost on restart")
		return memory.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

func openPositions(cfg *config.Config, nc *nats.Conn) (ports.PositionProvider, func(), error) {
	switch cfg.Position.Driver {
	case config.PositionStatic:
		if !cfg.Position.Static.Enabled {
			slog.Warn("no position source configured, location requests will fail")
			return static.Unavailable(), func() {}, nil
		}
		sc := cfg.Position.Static
		return static.New(domain.PositionFix{
			Latitude:  sc.Latitude,
			Longitude: sc.Longitude,
			Accuracy:  sc.Accuracy,
		}), func() {}, nil

	case config.PositionNATS:
		if nc == nil {
			return nil, nil, fmt.Errorf("nats position source needs a NATS connection")
		}
		return natsadapter.NewPositionRequester(nc, cfg.Position.Subject), func() {}, nil

	case config.PositionMQTT:
		l, err := mqtt.Connect(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
		})
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown position driver %q", cfg.Position.Driver)
}
