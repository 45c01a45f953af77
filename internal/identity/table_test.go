package identity

import (
	"sync"
	"testing"
)

type object struct {
	Storage
	name string
}

func newTestTable(t *testing.T) *Table {
	t.Helper()
	tab, err := NewTable()
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	t.Cleanup(func() {
		if tab.Len() == 0 {
			tab.Close()
		}
	})
	return tab
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

func TestRegisterLookup(t *testing.T) {
	tab := newTestTable(t)
	a := &object{name: "a"}
	b := &object{name: "b"}

	ka := tab.Register(KindResource, a, "meta-a")
	kb := tab.Register(KindResourceView, b, "meta-b")
	if ka == 0 || kb == 0 || ka == kb {
		t.Fatalf("Register() keys = %#x, %#x, want distinct non-zero", ka, kb)
	}

	if got := tab.Lookup(KindResource, a); got != "meta-a" {
		t.Errorf("Lookup(a) = %v, want meta-a", got)
	}
	if got := Get[string](tab, KindResourceView, b); got != "meta-b" {
		t.Errorf("Get(b) = %v, want meta-b", got)
	}
	if got := ResolveAs[string](tab, KindResource, ka); got != "meta-a" {
		t.Errorf("ResolveAs(ka) = %v, want meta-a", got)
	}
	if tab.KeyOf(a) != ka {
		t.Errorf("KeyOf(a) = %#x, want %#x", tab.KeyOf(a), ka)
	}
	if tab.Object(KindResource, ka) != Holder(a) {
		t.Error("Object(ka) did not return the tagged object")
	}

	tab.Unregister(KindResource, a)
	tab.Unregister(KindResourceView, b)
}

func TestUnregisterInvalidatesKey(t *testing.T) {
	tab := newTestTable(t)
	a := &object{}
	key := tab.Register(KindSampler, a, 1)

	if got := tab.Unregister(KindSampler, a); got != 1 {
		t.Errorf("Unregister() = %v, want 1", got)
	}
	if tab.Contains(KindSampler, key) {
		t.Error("Contains() = true after Unregister")
	}
	if tab.KeyOf(a) != 0 {
		t.Errorf("KeyOf() = %#x after Unregister, want 0", tab.KeyOf(a))
	}

	// The freed slot is reused with a new generation; the old key stays dead.
	b := &object{}
	key2 := tab.Register(KindSampler, b, 2)
	if key2.index() != key.index() {
		t.Fatalf("slot not reused: %d vs %d", key2.index(), key.index())
	}
	if tab.Contains(KindSampler, key) {
		t.Error("stale key resolves after slot reuse")
	}
	if !tab.Contains(KindSampler, key2) {
		t.Error("new key does not resolve")
	}

	// The object can be registered again once untagged.
	tab.Unregister(KindSampler, b)
	tab.Register(KindSampler, a, 3)
	tab.Unregister(KindSampler, a)
}

func TestUnregisterNilIsNoop(t *testing.T) {
	tab := newTestTable(t)
	if got := tab.Unregister(KindResource, nil); got != nil {
		t.Errorf("Unregister(nil) = %v, want nil", got)
	}
	if got := tab.UnregisterKey(KindResource, 0); got != nil {
		t.Errorf("UnregisterKey(0) = %v, want nil", got)
	}
}

func TestContractViolationsPanic(t *testing.T) {
	tab := newTestTable(t)
	a := &object{}

	expectPanic(t, "Lookup(unregistered)", func() { tab.Lookup(KindResource, a) })
	expectPanic(t, "Register(nil)", func() { tab.Register(KindResource, nil, nil) })
	expectPanic(t, "Resolve(0)", func() { tab.Resolve(KindResource, 0) })

	tab.Register(KindResource, a, nil)
	expectPanic(t, "double Register", func() { tab.Register(KindResource, a, nil) })
	expectPanic(t, "Lookup(wrong kind)", func() { tab.Lookup(KindPipeline, a) })
	tab.Unregister(KindResource, a)
	expectPanic(t, "double Unregister", func() { tab.Unregister(KindResource, a) })
}

func TestTablesUseDistinctSlots(t *testing.T) {
	t1 := newTestTable(t)
	t2 := newTestTable(t)
	a := &object{}

	k1 := t1.Register(KindResource, a, "one")
	k2 := t2.Register(KindResource, a, "two")
	if got := t1.Resolve(KindResource, k1); got != "one" {
		t.Errorf("t1.Resolve() = %v, want one", got)
	}
	if got := t2.Lookup(KindResource, a); got != "two" {
		t.Errorf("t2.Lookup() = %v, want two", got)
	}
	_ = k2
	t1.Unregister(KindResource, a)
	t2.Unregister(KindResource, a)
}

func TestRangeAndCount(t *testing.T) {
	tab := newTestTable(t)
	objs := make([]*object, 600)
	for i := range objs {
		objs[i] = &object{}
		kind := KindResource
		if i%3 == 0 {
			kind = KindPipeline
		}
		tab.Register(kind, objs[i], i)
	}
	if got := tab.Len(); got != 600 {
		t.Errorf("Len() = %d, want 600", got)
	}
	if got := tab.Count(KindPipeline); got != 200 {
		t.Errorf("Count(pipeline) = %d, want 200", got)
	}
	for i, o := range objs {
		kind := KindResource
		if i%3 == 0 {
			kind = KindPipeline
		}
		tab.Unregister(kind, o)
	}
	if got := tab.Len(); got != 0 {
		t.Errorf("Len() = %d after unregistering all, want 0", got)
	}
}

func TestCloseWithLiveRecordsPanics(t *testing.T) {
	tab := newTestTable(t)
	a := &object{}
	tab.Register(KindResource, a, nil)
	expectPanic(t, "Close", tab.Close)
	tab.Unregister(KindResource, a)
}

func TestConcurrentRegisterLookup(t *testing.T) {
	tab := newTestTable(t)
	const workers, perWorker = 8, 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				o := &object{}
				key := tab.Register(KindResource, o, w*perWorker+i)
				if got := tab.Lookup(KindResource, o); got != w*perWorker+i {
					t.Errorf("Lookup() = %v, want %d", got, w*perWorker+i)
					return
				}
				if !tab.Contains(KindResource, key) {
					t.Error("Contains() = false for live key")
					return
				}
				tab.Unregister(KindResource, o)
			}
		}(w)
	}
	wg.Wait()

	if got := tab.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}
