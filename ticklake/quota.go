package ticklake

import "sync/atomic"

// Download budget limits, in bytes.
const (
	// DefaultDownloadLimit is the per-invocation budget: 1 TiB.
	DefaultDownloadLimit int64 = 1 << 40

	// HardDownloadLimit caps any configured budget: 20 TiB.
	HardDownloadLimit int64 = 20 << 40
)

// Quota tracks cumulative downloaded bytes against a byte budget.
//
// It is safe for concurrent use. Each Download call owns its own quota by
// default; pass one Quota to several downloaders (or several calls) with
// WithQuota to enforce a shared budget.
type Quota struct {
	limit int64
	used  atomic.Int64
}

// NewQuota creates a quota with the given byte limit. Non-positive limits
// fall back to DefaultDownloadLimit; limits above HardDownloadLimit are
// clamped to it.
func NewQuota(limit int64) *Quota {
	if limit <= 0 {
		limit = DefaultDownloadLimit
	}
	if limit > HardDownloadLimit {
		limit = HardDownloadLimit
	}
	return &Quota{limit: limit}
}

// Add records n transferred bytes. It returns a QuotaError when the
// running total goes over the limit; the bytes stay counted either way,
// since transferred data is never rolled back.
func (q *Quota) Add(n int64) error {
	used := q.used.Add(n)
	if used > q.limit {
		return &QuotaError{Limit: q.limit, Used: used}
	}
	return nil
}

// Exhausted reports whether the budget is used up. Workers consult it
// before starting a fetch so no transfer begins against a spent budget.
func (q *Quota) Exhausted() bool {
	return q.used.Load() >= q.limit
}

// Used returns the bytes recorded so far.
func (q *Quota) Used() int64 { return q.used.Load() }

// Limit returns the configured byte limit.
func (q *Quota) Limit() int64 { return q.limit }
