package identity

import (
	"errors"
	"sync/atomic"
)

// MaxSlots is the number of tables that may be alive at the same time. Each
// table owns one tag word in every Storage.
const MaxSlots = 8

// ErrNoSlots is returned by NewTable when MaxSlots tables are alive.
var ErrNoSlots = errors.New("identity: no free tag slot")

// slots is the bitmask of allocated tag slots.
var slots atomic.Uint32

func acquireSlot() (int, error) {
	for {
		used := slots.Load()
		for i := 0; i < MaxSlots; i++ {
			bit := uint32(1) << i
			if used&bit != 0 {
				continue
			}
			if slots.CompareAndSwap(used, used|bit) {
				return i, nil
			}
			break
		}
		if slots.Load() == used {
			return 0, ErrNoSlots
		}
	}
}

func releaseSlot(i int) {
	bit := uint32(1) << i
	for {
		used := slots.Load()
		if slots.CompareAndSwap(used, used&^bit) {
			return
		}
	}
}

// Storage is the extensible per-object storage of a native object. Native
// objects that take part in identity tagging embed a Storage; tables keep
// the arena key of the object's record in it.
//
// Distinct objects may be tagged and looked up concurrently without locks.
type Storage struct {
	tags [MaxSlots]atomic.Uint64
}

// TagStorage returns s. It makes every type embedding Storage a Holder.
func (s *Storage) TagStorage() *Storage { return s }

// Holder is implemented by objects carrying a Storage.
type Holder interface {
	TagStorage() *Storage
}
