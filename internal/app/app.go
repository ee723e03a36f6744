package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/kart-session/internal/handler"
	"github.com/xenking/kart-session/internal/session"
	"github.com/xenking/kart-session/pkg/health"
	"github.com/xenking/kart-session/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Backend),
	)

	backend, err := OpenBackend(ctx, lg, cfg.Storage, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer backend.Close()

	healthSvc := health.New()
	if backend.Ping != nil {
		healthSvc.AddReadinessCheck("storage", 5*time.Second, backend.Ping)
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.SetReady(true)

	sessions := session.NewRegistry(backend.Repository, cfg.Session.Key, session.Config{
		Logger:         lg.Named("session"),
		MeterProvider:  m.MeterProvider(),
		TracerProvider: m.TracerProvider(),
		SaveTimeout:    cfg.Session.SaveTimeout,
		LoadTimeout:    cfg.Session.LoadTimeout,
		IdleTimeout:    cfg.Session.IdleTimeout,
	})
	go sessions.Run(ctx)

	h := handler.NewHandler(handler.HandlerConfig{
		SessionCookie: cfg.Session.Cookie,
		SecureCookie:  cfg.Session.SecureCookie,
		SessionTTL:    cfg.Session.TTL,
	}, sessions)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(
			httpmiddleware.Wrap(mux,
				httpmiddleware.InjectLogger(lg),
				httpmiddleware.Recovery(),
				httpmiddleware.CORS(httpmiddleware.CORSConfig{
					AllowOrigins:     cfg.CORS.Origins,
					AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
					AllowCredentials: cfg.CORS.AllowCredentials,
					MaxAge:           86400,
				}),
				httpmiddleware.RequestID(),
				httpmiddleware.LogRequests(),
			),
			"kart-session",
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithTracerProvider(m.TracerProvider()),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server",
			zap.Duration("timeout", cfg.Graceful.ShutdownTimeout),
			zap.Int("sessions", sessions.Len()),
		)
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
