// Package dialect detects dialect-specific SQL constructs and rewrites
// statements between dialects. It is feature-pattern based, not a parser:
// conversions are lossy and best-effort, and every fired rule is reported
// as a human-readable warning.
package dialect

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/dataglade/dataglade-connect/pkg/models"
)

// DefaultCacheSize bounds the conversion cache when no size is configured.
const DefaultCacheSize = 256

// cachedConversion is one memoized Convert result.
type cachedConversion struct {
	SQL      string
	Warnings []string
}

// Handler converts SQL between dialects, caching converted statements so
// repeated queries skip the rule scan.
type Handler struct {
	cache  *lru.Cache[string, cachedConversion]
	logger *zap.Logger
}

// NewHandler returns a Handler with an LRU conversion cache of the given
// size. A non-positive size falls back to DefaultCacheSize.
func NewHandler(cacheSize int, logger *zap.Logger) (*Handler, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cache, err := lru.New[string, cachedConversion](cacheSize)
	if err != nil {
		return nil, err
	}

	return &Handler{cache: cache, logger: logger}, nil
}

// Convert rewrites sql from one dialect to another by applying the ordered
// rule list for the (from, to) pair. It returns the converted SQL and one
// warning per rule that fired. Converting a statement to its own dialect is
// the identity. A pair with no rule table is an error; callers that want
// silent skipping should go through AutoConvert.
func (h *Handler) Convert(sql string, from, to models.Dialect) (string, []string, error) {
	if from == to {
		return sql, nil, nil
	}

	rules, ok := conversionRules[conversionKey{From: from, To: to}]
	if !ok {
		return sql, nil, fmt.Errorf("no conversion rules from %s to %s", from, to)
	}

	key := conversionCacheKey(from, to, sql)
	if cached, ok := h.cache.Get(key); ok {
		h.logger.Debug("dialect conversion served from cache",
			zap.String("from", from.String()),
			zap.String("to", to.String()))
		return cached.SQL, cached.Warnings, nil
	}

	converted := sql
	var warnings []string
	for _, rule := range rules {
		next, applied := rule.apply(converted)
		if applied {
			warnings = append(warnings, rule.warn)
			converted = next
		}
	}

	h.cache.Add(key, cachedConversion{SQL: converted, Warnings: warnings})

	if len(warnings) > 0 {
		h.logger.Debug("dialect conversion applied",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Int("rules_fired", len(warnings)))
	}

	return converted, warnings, nil
}

// AutoConvert is the connector entry point: it detects the statement's
// source dialect from feature counts and converts to the target when
// needed. It never fails; when the source is ambiguous (tied counts), no
// foreign features are found, or no rule table covers the pair, the SQL is
// returned unchanged.
func (h *Handler) AutoConvert(sql string, target models.Dialect) (string, []string) {
	counts := h.DetectFeatures(sql)

	var source models.Dialect
	best, ties := 0, 0
	for _, d := range knownDialects {
		n := counts[d]
		if n > best {
			source, best, ties = d, n, 1
		} else if n == best && n > 0 {
			ties++
		}
	}

	if best == 0 || ties > 1 || source == target {
		return sql, nil
	}

	if _, ok := conversionRules[conversionKey{From: source, To: target}]; !ok {
		h.logger.Debug("no conversion rules for detected source dialect",
			zap.String("source", source.String()),
			zap.String("target", target.String()))
		return sql, nil
	}

	converted, warnings, err := h.Convert(sql, source, target)
	if err != nil {
		return sql, nil
	}
	return converted, warnings
}

// conversionCacheKey hashes (from, to, sql) so equivalent statements share
// a cache slot regardless of length.
func conversionCacheKey(from, to models.Dialect, sql string) string {
	h := sha256.New()
	h.Write([]byte(from))
	h.Write([]byte{'|'})
	h.Write([]byte(to))
	h.Write([]byte{'|'})
	h.Write([]byte(sql))
	return hex.EncodeToString(h.Sum(nil))
}
