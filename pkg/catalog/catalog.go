// Package catalog lists the models a user can pick from.
package catalog

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// DefaultModel is offered alone whenever the provider cannot be asked.
const DefaultModel = "gpt-3.5-turbo"

// DefaultTTL is how long a successful listing is reused.
const DefaultTTL = 10 * time.Minute

const cacheKey = "models"

// Lister queries the provider for available model identifiers.
type Lister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Catalog answers model listings, falling back to DefaultModel on any failure.
type Catalog struct {
	lister Lister
	cache  *cache.Cache
	logger *zap.Logger
}

// New creates a catalog. A zero ttl disables caching.
func New(lister Lister, ttl time.Duration, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Catalog{
		lister: lister,
		logger: logger,
	}
	if ttl > 0 {
		c.cache = cache.New(ttl, 2*ttl)
	}
	return c
}

// Fallback is the list returned when the provider cannot be queried.
func Fallback() []string {
	return []string{DefaultModel}
}

// List returns the provider's models in provider order, or Fallback() if the
// provider call fails or returns nothing. Fallbacks are never cached.
func (c *Catalog) List(ctx context.Context) []string {
	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey); ok {
			return clone(cached.([]string))
		}
	}

	models, err := c.lister.ListModels(ctx)
	if err != nil {
		c.logger.Warn("failed to list models, using default", zap.Error(err))
		return Fallback()
	}
	if len(models) == 0 {
		c.logger.Warn("provider returned no models, using default")
		return Fallback()
	}

	c.logger.Info("listed models", zap.Int("count", len(models)))
	if c.cache != nil {
		c.cache.SetDefault(cacheKey, clone(models))
	}
	return models
}

// Default returns the model preselected in user interfaces: the first listed.
func (c *Catalog) Default(ctx context.Context) string {
	return c.List(ctx)[0]
}

// Invalidate drops any cached listing.
func (c *Catalog) Invalidate() {
	if c.cache != nil {
		c.cache.Delete(cacheKey)
	}
}

func clone(models []string) []string {
	out := make([]string, len(models))
	copy(out, models)
	return out
}
