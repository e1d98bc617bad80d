package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/flagprops/internal/api"
	"github.com/TimurManjosov/flagprops/internal/config"
	"github.com/TimurManjosov/flagprops/internal/properties"
	"github.com/TimurManjosov/flagprops/internal/targeting"
	"github.com/TimurManjosov/flagprops/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config")
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing(context.Background(), cfg.OTLPEndpoint, "flagprops", cfg.AppEnv)
	if err != nil {
		logger.Fatal().Err(err).Msg("tracing")
	}

	matcher, err := newMatcher(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("pattern cache")
	}

	srvAPI := api.NewServer(matcher, logger, api.Options{
		MaxRequestBodyBytes:  cfg.MaxRequestBodyBytes,
		MaxFiltersPerRequest: cfg.MaxFiltersPerRequest,
		RateLimitPerIP:       cfg.RateLimitPerIP,
		DefaultPartial:       cfg.DefaultPartialProps,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server")
		}
	}()
	go func() {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("metrics server")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	if err := shutdownTracing(ctxShut); err != nil {
		logger.Warn().Err(err).Msg("tracing shutdown")
	}
	logger.Info().Msg("stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("env", cfg.AppEnv).Logger()
}

// newMatcher builds the shared matcher. With a pattern cache, every
// evaluation also refreshes the cache size gauge.
func newMatcher(cfg *config.Config) (*targeting.Matcher, error) {
	if cfg.PatternCacheSize == 0 {
		return targeting.NewMatcher(nil, telemetry.RecordPropertyMatch), nil
	}
	cache, err := targeting.NewPatternCache(cfg.PatternCacheSize)
	if err != nil {
		return nil, err
	}
	observe := func(op properties.Operator, outcome string) {
		telemetry.RecordPropertyMatch(op, outcome)
		telemetry.PatternCacheEntries.Set(float64(cache.Len()))
	}
	return targeting.NewMatcher(cache, observe), nil
}
