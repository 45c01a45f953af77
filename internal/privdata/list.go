// Package privdata stores caller-owned 64-bit values keyed by GUID on core
// objects.
package privdata

import (
	"fmt"
	"sync"

	"github.com/gogpu/interpose/api"
)

type entry struct {
	guid  api.GUID
	value uint64
}

// List is a small linear GUID to value map. Objects carry only a handful of
// entries, so lookups scan the list and compare GUIDs byte for byte.
//
// The zero List is empty and ready to use. List is safe for concurrent use.
type List struct {
	mu      sync.Mutex
	entries []entry
}

// Get returns the value stored under guid, or zero.
func (l *List) Get(guid api.GUID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.guid == guid {
			return e.value
		}
	}
	return 0
}

// Set stores value under guid. Storing zero removes the entry.
func (l *List) Set(guid api.GUID, value uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].guid != guid {
			continue
		}
		if value == 0 {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
		} else {
			l.entries[i].value = value
		}
		return
	}
	if value != 0 {
		l.entries = append(l.entries, entry{guid: guid, value: value})
	}
}

// Len returns the number of entries.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// AssertEmpty panics if entries remain. owner names the object in the
// message. Called when the owning object is destroyed.
func (l *List) AssertEmpty(owner string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return
	}
	panic(fmt.Sprintf("privdata: %s destroyed with %d private data entries (first %s)",
		owner, len(l.entries), l.entries[0].guid))
}
