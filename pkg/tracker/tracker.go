// Package tracker keeps an in-memory registry of in-flight queries so
// they can be listed and cancelled by id.
package tracker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// CancelFunc attempts to stop a running query and reports whether the
// cancellation took effect.
type CancelFunc func() bool

// QueryInfo is a snapshot of one tracked query.
type QueryInfo struct {
	QueryID    string    `json:"query_id"`
	DatabaseID string    `json:"database_id"`
	StartedAt  time.Time `json:"started_at"`
}

type trackedQuery struct {
	info   QueryInfo
	cancel CancelFunc
}

// Tracker registers running queries. Each query moves
// absent -> registered -> (unregistered | cancelled); both exits are
// terminal and idempotent.
type Tracker struct {
	mu      sync.RWMutex
	queries map[string]*trackedQuery
	logger  *zap.Logger
}

// New returns an empty tracker.
func New(logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		queries: make(map[string]*trackedQuery),
		logger:  logger.Named("tracker"),
	}
}

// Register adds a query to the registry. Re-registering a live id
// replaces the previous entry and drops its cancel func.
func (t *Tracker) Register(queryID, dbID string, cancel CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.queries[queryID]; exists {
		t.logger.Warn("query id already registered, replacing",
			zap.String("query_id", queryID),
			zap.String("database_id", dbID))
	}

	t.queries[queryID] = &trackedQuery{
		info: QueryInfo{
			QueryID:    queryID,
			DatabaseID: dbID,
			StartedAt:  time.Now(),
		},
		cancel: cancel,
	}

	t.logger.Debug("query registered",
		zap.String("query_id", queryID),
		zap.String("database_id", dbID))
}

// Unregister removes a query. Removing an absent id is a no-op.
func (t *Tracker) Unregister(queryID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.queries, queryID)
}

// Cancel invokes the query's cancel func and removes the entry. It
// returns false when the id is not registered, when the callback reports
// failure, or when the callback panics. The entry is removed before the
// callback runs so a concurrent Cancel for the same id sees it absent.
func (t *Tracker) Cancel(queryID string) bool {
	t.mu.Lock()
	entry, ok := t.queries[queryID]
	if ok {
		delete(t.queries, queryID)
	}
	t.mu.Unlock()

	if !ok {
		t.logger.Debug("cancel requested for unknown query",
			zap.String("query_id", queryID))
		return false
	}

	cancelled := t.invokeCancel(queryID, entry.cancel)

	t.logger.Info("query cancel attempted",
		zap.String("query_id", queryID),
		zap.String("database_id", entry.info.DatabaseID),
		zap.Bool("cancelled", cancelled))

	return cancelled
}

// invokeCancel runs the callback, converting a panic into a false result.
func (t *Tracker) invokeCancel(queryID string, cancel CancelFunc) (cancelled bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("cancel callback panicked",
				zap.String("query_id", queryID),
				zap.Any("panic", r))
			cancelled = false
		}
	}()

	if cancel == nil {
		return false
	}
	return cancel()
}

// List returns snapshots of tracked queries for one database, or for all
// databases when dbID is empty.
func (t *Tracker) List(dbID string) map[string]QueryInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]QueryInfo)
	for id, entry := range t.queries {
		if dbID != "" && entry.info.DatabaseID != dbID {
			continue
		}
		out[id] = entry.info
	}
	return out
}

// Count returns the number of tracked queries.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.queries)
}
