package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/replykit/replykit/internal/ailink/driver/gemini"
	"github.com/replykit/replykit/internal/config"
	"github.com/replykit/replykit/internal/reply"
	"github.com/replykit/replykit/internal/store"
)

// replyRuntime bundles the reply client with the resources it owns.
type replyRuntime struct {
	client *reply.Client
	gemini *gemini.Client
	store  *store.Store
}

// Close releases the store, if one was opened.
func (r *replyRuntime) Close() error {
	if r == nil || r.store == nil {
		return nil
	}
	return r.store.Close()
}

// newReplyRuntime validates cfg and builds a client from it. A store that
// cannot be opened is logged and skipped; throttle state then lives in memory.
func newReplyRuntime(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*replyRuntime, error) {
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gc := newGeminiClient(cfg.Gemini)

	throttle := reply.NewThrottle(cfg.Gemini.MinInterval)
	throttle.Endpoint = gc.Model

	opts := reply.Options{
		MaxRetries:  cfg.Gemini.MaxRetries,
		BackoffBase: cfg.Gemini.RateLimitBase,
		RetryDelay:  cfg.Gemini.RetryDelay,
		Throttle:    throttle,
		Logger:      logger,
	}

	rt := &replyRuntime{gemini: gc}
	if cfg.Store.Enabled {
		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			if logger != nil {
				logger.Warn("Store unavailable; throttle state kept in memory", zap.Error(err))
			}
		} else {
			rt.store = st
			throttle.Store = st
			opts.Recorder = st
		}
	}

	client, err := reply.New(gc, opts)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.client = client
	return rt, nil
}

func newGeminiClient(g config.GeminiConfig) *gemini.Client {
	gc := gemini.NewClient(g.BaseURL, g.APIKey)
	if g.Model != "" {
		gc.Model = g.Model
	}
	if g.Timeout > 0 {
		gc.Timeout = g.Timeout
	}
	gc.Generation = g.Generation
	if gc.Generation.StopSequences == nil {
		gc.Generation.StopSequences = []string{}
	}
	gc.Safety = gemini.SafetySettingsWithThreshold(g.SafetyThreshold)
	return gc
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context, cfg config.StoreConfig) (*store.Store, error) {
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	return db, nil
}

// openConfiguredStore loads config and opens its store for the maintenance
// commands.
func openConfiguredStore(ctx context.Context) (*store.Store, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.Store.Enabled {
		return nil, errors.New("store is disabled (store.enabled=false)")
	}
	return openStore(ctx, cfg.Store)
}

// exitCodeFor maps setup errors to foundry exit codes.
func exitCodeFor(err error) foundry.ExitCode {
	switch {
	case errors.Is(err, config.ErrMissingAPIKey), errors.Is(err, config.ErrInvalidConfig):
		return foundry.ExitConfigInvalid
	default:
		return foundry.ExitFailure
	}
}
