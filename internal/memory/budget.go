// Package memory tracks the bytes a device has allocated against a budget.
package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/interpose/api"
)

// ErrClosed is returned when reserving from a closed budget.
var ErrClosed = errors.New("interpose: memory budget closed")

// Default limits.
const (
	// DefaultBudgetMB is the default allocation budget (1 GiB).
	DefaultBudgetMB = 1024

	// DefaultPressureThreshold is the utilization at which Reserve reports
	// pressure.
	DefaultPressureThreshold = 0.8

	// MinBudgetMB is the smallest accepted budget.
	MinBudgetMB = 16
)

// Stats is a snapshot of budget usage.
type Stats struct {
	// TotalBytes is the budget in bytes.
	TotalBytes uint64

	// UsedBytes is the reserved memory in bytes.
	UsedBytes uint64

	// AvailableBytes is the remaining budget.
	AvailableBytes uint64

	// Allocations is the number of live reservations.
	Allocations int

	// Rejected counts reservations refused for lack of budget.
	Rejected uint64

	// Utilization is UsedBytes / TotalBytes (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d MB, %d allocations, %d rejected]",
		s.Utilization*100,
		s.UsedBytes/(1024*1024),
		s.TotalBytes/(1024*1024),
		s.Allocations,
		s.Rejected)
}

// Config configures a Budget.
type Config struct {
	// BudgetMB is the budget in megabytes. Values below MinBudgetMB select
	// DefaultBudgetMB.
	BudgetMB int

	// PressureThreshold is the utilization fraction above which Reserve
	// reports pressure. Defaults to DefaultPressureThreshold.
	PressureThreshold float64
}

// Budget is safe for concurrent use.
type Budget struct {
	mu sync.Mutex

	total     uint64
	used      uint64
	count     int
	rejected  uint64
	threshold float64
	closed    bool
}

// New creates a budget.
func New(cfg Config) *Budget {
	mb := cfg.BudgetMB
	if mb < MinBudgetMB {
		mb = DefaultBudgetMB
	}
	threshold := cfg.PressureThreshold
	if threshold <= 0 || threshold > 1.0 {
		threshold = DefaultPressureThreshold
	}
	return &Budget{
		total:     uint64(mb) * 1024 * 1024,
		threshold: threshold,
	}
}

// Reserve charges n bytes. It fails with api.ErrOutOfMemory when the budget
// cannot hold them. pressure reports that usage crossed the threshold.
func (b *Budget) Reserve(n uint64) (pressure bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false, ErrClosed
	}
	if n > b.total-b.used {
		b.rejected++
		return true, fmt.Errorf("%w: %d bytes requested, %d of %d MB free",
			api.ErrOutOfMemory, n, (b.total-b.used)/(1024*1024), b.total/(1024*1024))
	}
	b.used += n
	b.count++
	return float64(b.used) > b.threshold*float64(b.total), nil
}

// Release returns n bytes reserved earlier.
func (b *Budget) Release(n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.used || b.count == 0 {
		panic(fmt.Sprintf("memory: releasing %d bytes with %d reserved in %d allocations", n, b.used, b.count))
	}
	b.used -= n
	b.count--
}

// Stats returns current usage.
func (b *Budget) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	var utilization float64
	if b.total > 0 {
		utilization = float64(b.used) / float64(b.total)
	}
	return Stats{
		TotalBytes:     b.total,
		UsedBytes:      b.used,
		AvailableBytes: b.total - b.used,
		Allocations:    b.count,
		Rejected:       b.rejected,
		Utilization:    utilization,
	}
}

// Close rejects further reservations. Releases are still accepted.
func (b *Budget) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}
