package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/pkg/logger"
	"github.com/wonny/crmgeek/backend/pkg/redis"
)

// SideCache keeps the last classic payload per request shape, on disk and in
// Redis. It never fails a request: errors are logged and swallowed.
type SideCache struct {
	dir    string
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewSideCache creates the cache. An empty dir disables the file copy;
// a disabled Redis client disables the shared copy.
func NewSideCache(dir string, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *SideCache {
	return &SideCache{dir: dir, cache: cache, ttl: ttl, logger: log.Component("forecast.cache")}
}

func scope(req contracts.ForecastRequest) string {
	s := req.ClientID
	if req.Product != "" {
		s += "@" + contracts.NormalizeProduct(req.Product)
	}
	return s
}

// FileName is the on-disk name for a request shape
func FileName(req contracts.ForecastRequest) string {
	parts := []string{"pronosticoVentas", req.Period, strings.ToLower(req.ModelID)}
	if s := scope(req); s != "" {
		parts = append(parts, s)
	}
	return sanitize(strings.Join(parts, "-")) + ".json"
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}

// Store writes the payload (pretty-printed on disk)
func (c *SideCache) Store(ctx context.Context, req contracts.ForecastRequest, raw []byte) {
	if c == nil {
		return
	}
	log := c.logger.WithFields(map[string]interface{}{"mes": req.Period, "modelo": req.ModelID})

	if c.dir != "" {
		if err := c.writeFile(req, raw); err != nil {
			log.WithError(err).Warn("side cache file write failed")
		}
	}

	if c.cache != nil {
		key := redis.ClassicForecastKey(req.Period, req.ModelID, scope(req))
		if err := c.cache.SetRaw(ctx, key, raw, c.ttl); err != nil {
			log.WithError(err).Warn("side cache redis write failed")
		}
	}
}

func (c *SideCache) writeFile(req contracts.ForecastRequest, raw []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return fmt.Errorf("indent payload: %w", err)
	}
	return os.WriteFile(filepath.Join(c.dir, FileName(req)), pretty.Bytes(), 0o644)
}

// Lookup returns the last cached payload for the request shape, Redis first
func (c *SideCache) Lookup(ctx context.Context, req contracts.ForecastRequest) (json.RawMessage, bool) {
	if c == nil {
		return nil, false
	}

	if c.cache != nil {
		var raw json.RawMessage
		found, err := c.cache.Get(ctx, redis.ClassicForecastKey(req.Period, req.ModelID, scope(req)), &raw)
		if err != nil {
			c.logger.WithError(err).Warn("side cache redis read failed")
		}
		if found {
			return raw, true
		}
	}

	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(c.dir, FileName(req)))
	if err != nil || !json.Valid(data) {
		return nil, false
	}
	return data, true
}
