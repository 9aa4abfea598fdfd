package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/interview-scheduler/internal/interview"
)

// Cache stores suggestion lists by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]interview.Suggestion, bool, error)
	Set(ctx context.Context, key string, suggestions []interview.Suggestion, ttl time.Duration) error
}

// Cached decorates an oracle with a suggestion cache. Cache failures are
// logged and bypassed.
type Cached struct {
	next   Oracle
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps next with cache entries that live for ttl.
func NewCached(next Oracle, cache Cache, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, cache: cache, ttl: ttl, logger: logger.With("component", "suggestion_cache")}
}

// Suggest implements Oracle.
func (c *Cached) Suggest(ctx context.Context, request interview.SuggestionRequest) ([]interview.Suggestion, error) {
	if c.cache == nil {
		return c.next.Suggest(ctx, request)
	}

	key := cacheKey(request)
	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "suggestion cache read failed", "error", err)
	}
	if ok {
		return cached, nil
	}

	suggestions, err := c.next.Suggest(ctx, request)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, suggestions, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "suggestion cache write failed", "error", err)
	}
	return suggestions, nil
}

// cacheKey covers every request field, busy intervals included, so a new
// confirmation produces a fresh key.
func cacheKey(request interview.SuggestionRequest) string {
	busy := make([]string, len(request.Busy))
	for i, interval := range request.Busy {
		busy[i] = strconv.FormatInt(interval.Start.Unix(), 10) + "-" + strconv.FormatInt(interval.End.Unix(), 10)
	}
	sort.Strings(busy)

	builder := strings.Builder{}
	builder.WriteString(request.EmployerID)
	builder.WriteString("|")
	builder.WriteString(request.WindowStart.UTC().Format(time.RFC3339))
	builder.WriteString("|")
	builder.WriteString(request.WindowEnd.UTC().Format(time.RFC3339))
	builder.WriteString("|")
	builder.WriteString(request.Duration.String())
	builder.WriteString("|")
	builder.WriteString(request.Timezone)
	builder.WriteString("|")
	builder.WriteString(strings.Join(busy, ","))

	sum := sha256.Sum256([]byte(builder.String()))
	return request.EmployerID + ":" + hex.EncodeToString(sum[:12])
}

func cloneSuggestions(suggestions []interview.Suggestion) []interview.Suggestion {
	if suggestions == nil {
		return nil
	}
	out := make([]interview.Suggestion, len(suggestions))
	copy(out, suggestions)
	return out
}
