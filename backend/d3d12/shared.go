package d3d12

import (
	"sync"

	"github.com/gogpu/interpose/api"
)

// Handle values are spaced like NT handles, in multiples of four. No kernel
// object backs them: they resolve only inside this process, so the flavor
// does not report CapSharedResourceNTHandle.
const (
	firstSharedHandle api.SharedHandle = 0x1000
	sharedHandleStep  api.SharedHandle = 4
)

// handleTable is the process-wide namespace of exported handles. Handles
// are never reused while the process lives.
type handleTable struct {
	mu      sync.Mutex
	next    api.SharedHandle
	entries map[api.SharedHandle]api.ResourceDesc
}

var shared = handleTable{next: firstSharedHandle}

func (t *handleTable) export(desc api.ResourceDesc) api.SharedHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries == nil {
		t.entries = make(map[api.SharedHandle]api.ResourceDesc)
	}
	h := t.next
	t.next += sharedHandleStep
	t.entries[h] = desc
	return h
}

func (t *handleTable) lookup(h api.SharedHandle) (api.ResourceDesc, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	desc, ok := t.entries[h]
	return desc, ok
}

func (t *handleTable) revoke(h api.SharedHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, h)
}
