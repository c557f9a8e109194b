package config

import (
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/gobii-run/agentcore/internal/clock"
	"github.com/gobii-run/agentcore/internal/telemetry"
	"github.com/gobii-run/agentcore/lifecycle"
)

// AppContext is the explicit, once-constructed dependency bag threaded
// through the event loop and every component it calls, replacing the
// module-level singleton caches (LLM bootstrap, tool settings, daily-credit
// settings) that the source keeps as process-globals.
type AppContext struct {
	Config *Config

	DB    *pgxpool.Pool
	Cache *redis.Client
	Mongo *mongo.Client

	Clock clock.Clock
	Rand  *rand.Rand

	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Tracer    telemetry.Tracer
	Lifecycle *lifecycle.Registry
}

// AppContextOption configures an AppContext built by NewAppContext.
type AppContextOption func(*AppContext)

// WithClock overrides the default real clock, for deterministic tests.
func WithClock(c clock.Clock) AppContextOption {
	return func(ac *AppContext) { ac.Clock = c }
}

// WithRand overrides the default process-seeded random source, for
// deterministic tests of weighted-random tier selection.
func WithRand(r *rand.Rand) AppContextOption {
	return func(ac *AppContext) { ac.Rand = r }
}

// WithLogger overrides the default noop logger.
func WithLogger(l telemetry.Logger) AppContextOption {
	return func(ac *AppContext) { ac.Logger = l }
}

// WithMetrics overrides the default noop metrics recorder.
func WithMetrics(m telemetry.Metrics) AppContextOption {
	return func(ac *AppContext) { ac.Metrics = m }
}

// WithTracer overrides the default noop tracer.
func WithTracer(t telemetry.Tracer) AppContextOption {
	return func(ac *AppContext) { ac.Tracer = t }
}

// NewAppContext assembles an AppContext from already-connected clients plus
// the resolved Config. Clock, Rand, Logger, Metrics, and Tracer default to
// real/noop implementations and can be overridden with options.
func NewAppContext(cfg *Config, db *pgxpool.Pool, cache *redis.Client, mongoClient *mongo.Client, opts ...AppContextOption) *AppContext {
	ac := &AppContext{
		Config:    cfg,
		DB:        db,
		Cache:     cache,
		Mongo:     mongoClient,
		Clock:     clock.Real,
		Rand:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(time.Now().UnixNano()>>1))),
		Logger:    telemetry.NewNoopLogger(),
		Metrics:   telemetry.NewNoopMetrics(),
		Tracer:    telemetry.NewNoopTracer(),
		Lifecycle: lifecycle.New(telemetry.NewNoopLogger()),
	}
	for _, opt := range opts {
		opt(ac)
	}
	return ac
}
