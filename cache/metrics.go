package cache

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is the default when no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit()          {}
func (NoopMetrics) Miss()         {}
func (NoopMetrics) Evict()        {}
func (NoopMetrics) SizeDelta(int) {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}

// Stats is a point-in-time snapshot of a cache's counters.
// Hits, Misses and Evictions are cumulative; Len is current.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Len       int
}
