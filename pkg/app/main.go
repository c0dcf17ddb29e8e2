package app

import (
	"github.com/gorilla/sessions"

	"github.com/ghuser/branchpos/pkg/cache"
	"github.com/ghuser/branchpos/pkg/config"
	"github.com/ghuser/branchpos/pkg/database"
	"github.com/ghuser/branchpos/pkg/events"
	"github.com/ghuser/branchpos/pkg/logger"
	"github.com/ghuser/branchpos/pkg/workflows"
)

// Application holds shared infrastructure dependencies for all bounded contexts.
// Pass it to each context's Routes function during server initialization.
//
// app.Logger is backed by a trace-aware handler, so trace_id, span_id and
// request_id are attached when the *Context methods are used:
//
//	app.Logger.InfoContext(ctx, "sale completed", "invoice", inv)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Config         *config.Config
	Db             *database.Database
	Logger         logger.Logger
	EventBus       *events.EventBus
	Redis          *cache.RedisClient        // nil disables caching and report locks
	TemporalClient *workflows.TemporalClient // worker only; nil when TEMPORAL_ENABLED is false
	SessionStore   sessions.Store            // Redis-backed session store; nil in worker process
}
