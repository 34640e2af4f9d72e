package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/salonpanel/salonpanel/internal/booking"
	"github.com/salonpanel/salonpanel/internal/bus"
	"github.com/salonpanel/salonpanel/internal/dataservice"
	"github.com/salonpanel/salonpanel/internal/handlers"
	"github.com/salonpanel/salonpanel/internal/notify"
	"github.com/salonpanel/salonpanel/internal/session"
	"github.com/salonpanel/salonpanel/libs/config"
	"github.com/salonpanel/salonpanel/libs/httpx"
	otelx "github.com/salonpanel/salonpanel/libs/otel"
	"github.com/salonpanel/salonpanel/libs/runtime"
)

func main() {
	service := config.String("SERVICE_NAME", "panel-service")
	port, err := config.Port("PORT", "8090")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dataURL, err := config.RequiredString("DATA_SERVICE_URL")
	if err != nil {
		panic(err)
	}
	client := dataservice.NewClient(dataservice.Config{
		BaseURL: dataURL,
		Timeout: config.Duration("DATA_SERVICE_TIMEOUT", 10*time.Second),
	})

	// The transport error callback forwards into the session, which owns the
	// reconnect policy. The session exists before any connect happens.
	var sess *session.Session
	onTransportError := func(err error) {
		if sess != nil {
			sess.HandleTransportError(err)
		}
	}

	driver := strings.ToLower(config.String("BUS_DRIVER", "redis"))
	var eventBus bus.Bus
	var readyChecks []runtime.ReadyCheck
	switch driver {
	case "kafka":
		brokers := config.String("KAFKA_BROKERS", "kafka:9092")
		eventBus = bus.NewKafkaBus(bus.KafkaConfig{
			Brokers:     brokers,
			GroupPrefix: config.String("KAFKA_GROUP_PREFIX", "panel"),
			OnError:     onTransportError,
		}, logger)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: bus.KafkaReadyCheck(brokers)})
	case "memory":
		// Single-process deployments and local development without a broker.
		eventBus = bus.NewMemoryBus()
	default:
		redisCfg := bus.RedisConfig{
			Addr:     config.String("REDIS_ADDR", "redis:6379"),
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
			OnError:  onTransportError,
		}
		eventBus = bus.NewRedisBus(redisCfg, logger)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: bus.RedisReadyCheck(redisCfg)})
	}
	readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "data-service", Check: client.Ready})

	sess = session.New(session.Config{
		BusinessOwnerID: config.Int64("BUSINESS_OWNER_ID", 1),
		FeedCapacity:    config.Int("FEED_CAPACITY", 0),
		Reconnect: session.ReconnectPolicy{
			Enabled:     config.Bool("RECONNECT_ENABLED", true),
			MaxAttempts: config.Int("RECONNECT_MAX_ATTEMPTS", 5),
			BaseDelay:   config.Duration("RECONNECT_BASE_DELAY", 1*time.Second),
			MaxDelay:    config.Duration("RECONNECT_MAX_DELAY", 30*time.Second),
		},
	}, eventBus, client, logger)
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		logger.Error("session start failed", "err", err)
		panic(err)
	}

	publisher := notify.NewPublisher(eventBus, logger, config.Duration("PUBLISH_TIMEOUT", notify.DefaultPublishTimeout))
	bookingSvc := booking.NewService(client, publisher, logger)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	handlers.NewPanelHandler(sess, bookingSvc, logger).Register(mux)

	middlewares := []httpx.Middleware{
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PATCH,OPTIONS")),
			AllowedHeaders: parseList(config.String("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id")),
			MaxAge:         config.Duration("CORS_MAX_AGE", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
	}
	rateLimitMW, rateLimitClose := newRateLimitMiddleware(driver, config.Int("RATE_LIMIT_PER_MINUTE", 120), logger)
	defer rateLimitClose()
	if rateLimitMW != nil {
		middlewares = append(middlewares, rateLimitMW)
	}

	handler := httpx.Chain(mux, middlewares...)
	handler = otelhttp.NewHandler(handler, "panel")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "bus_driver", driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// newRateLimitMiddleware returns a nil middleware when limiting is disabled
// (limit <= 0). The redis driver shares its limiter across instances; the
// cleanup closes that client.
func newRateLimitMiddleware(driver string, limitPerMinute int, logger *slog.Logger) (httpx.Middleware, func()) {
	if limitPerMinute <= 0 {
		return nil, func() {}
	}
	if driver == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.String("REDIS_ADDR", "redis:6379"),
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "panel-rl"))
		return rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)), func() { _ = rdb.Close() }
	}
	rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
	return rl.Middleware(), func() {}
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
