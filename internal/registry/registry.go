// Package registry maps resource and resource-view handles to their
// descriptions and backing native objects.
//
// Records are registered in an identity.Table: a handle is the record's
// identity key, and the native object carries the same key in its tag
// storage, so both directions resolve without a side map.
package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/identity"
)

// MapState is the CPU mapping state of a resource.
type MapState uint32

// Mapping states.
const (
	Unmapped MapState = iota
	MappedRead
	MappedWrite
)

// String returns the state name.
func (s MapState) String() string {
	switch s {
	case Unmapped:
		return "unmapped"
	case MappedRead:
		return "mapped-read"
	case MappedWrite:
		return "mapped-write"
	default:
		return fmt.Sprintf("MapState(%d)", uint32(s))
	}
}

// SubresourceLayout locates one subresource in a texture's staging buffer.
type SubresourceLayout struct {
	Offset     uint64
	RowPitch   uint32
	SlicePitch uint32
	Width      uint32
	Height     uint32
	Depth      uint32
}

// Resource is the record of a buffer or texture.
type Resource struct {
	Handle api.Resource
	Desc   api.ResourceDesc

	// InitialState is the usage state the resource was created in.
	InitialState api.ResourceUsage

	// Native is the tagged native object registered for the resource.
	Native identity.Holder

	// Buffer or Texture is the raw backend object.
	Buffer  hal.Buffer
	Texture hal.Texture

	// Staging holds the CPU copy of a CPU-visible texture, laid out as
	// described by Layout.
	Staging hal.Buffer
	Layout  []SubresourceLayout

	// Mapped is the staging memory of the current texture mapping.
	Mapped []byte

	// Bytes is the size charged against the allocation budget.
	Bytes uint64

	// Shared is the exported cross-process handle, or zero.
	Shared api.SharedHandle

	// External marks resources owned by someone else (swap-chain back
	// buffers); destroying them releases only the record.
	External bool

	name      atomic.Pointer[string]
	state     atomic.Uint32
	mappedSub atomic.Uint32
	views     atomic.Int32
}

// Name returns the debug name.
func (r *Resource) Name() string {
	if p := r.name.Load(); p != nil {
		return *p
	}
	return ""
}

// SetName sets the debug name.
func (r *Resource) SetName(name string) { r.name.Store(&name) }

// MapState returns the current mapping state.
func (r *Resource) MapState() MapState { return MapState(r.state.Load()) }

// MappedSubresource returns the subresource of the current texture mapping.
func (r *Resource) MappedSubresource() uint32 { return r.mappedSub.Load() }

// Views returns the number of live views over the resource.
func (r *Resource) Views() int { return int(r.views.Load()) }

// BeginMap moves the resource from Unmapped to the mapped state matching
// access. It fails with api.ErrAlreadyMapped if the resource is mapped.
func (r *Resource) BeginMap(access api.MapAccess, subresource uint32) error {
	target := MappedRead
	if access.Writes() {
		target = MappedWrite
	}
	if !r.state.CompareAndSwap(uint32(Unmapped), uint32(target)) {
		return fmt.Errorf("%w: resource %#x is %s", api.ErrAlreadyMapped, uint64(r.Handle), r.MapState())
	}
	r.mappedSub.Store(subresource)
	return nil
}

// EndMap returns the resource to Unmapped and reports the state it left.
// Ending a mapping of an unmapped resource is a no-op returning Unmapped.
func (r *Resource) EndMap() MapState {
	return MapState(r.state.Swap(uint32(Unmapped)))
}

// View is the record of a resource view.
type View struct {
	Handle   api.ResourceView
	Resource *Resource
	Usage    api.ResourceUsage
	Desc     api.ResourceViewDesc

	// Native is the tagged native object registered for the view.
	Native identity.Holder

	// Texture is the raw backend view of texture views; nil for buffer
	// views, which bind the owning buffer's range directly.
	Texture hal.TextureView

	name atomic.Pointer[string]
}

// Name returns the debug name.
func (v *View) Name() string {
	if p := v.name.Load(); p != nil {
		return *p
	}
	return ""
}

// SetName sets the debug name.
func (v *View) SetName(name string) { v.name.Store(&name) }

// Registry holds the resource and view records of one device.
type Registry struct {
	table *identity.Table

	// mu orders view creation against resource destruction.
	mu sync.RWMutex
}

// New returns a registry storing its records in table.
func New(table *identity.Table) *Registry {
	return &Registry{table: table}
}

// AddResource registers rec for native and returns the new handle.
func (g *Registry) AddResource(native identity.Holder, rec *Resource) api.Resource {
	rec.Native = native
	rec.Handle = api.Resource(g.table.Register(identity.KindResource, native, rec))
	return rec.Handle
}

// Resource returns the record of h. It panics if h is not registered.
func (g *Registry) Resource(h api.Resource) *Resource {
	return identity.ResolveAs[*Resource](g.table, identity.KindResource, identity.Key(h))
}

// LookupResource returns the record of h, if registered.
func (g *Registry) LookupResource(h api.Resource) (*Resource, bool) {
	v, ok := g.table.TryResolve(identity.KindResource, identity.Key(h))
	if !ok {
		return nil, false
	}
	return v.(*Resource), true
}

// ResourceFromNative returns the record of a tagged native object. It
// panics if native is not registered as a resource.
func (g *Registry) ResourceFromNative(native identity.Holder) *Resource {
	return identity.Get[*Resource](g.table, identity.KindResource, native)
}

// RemoveResource unregisters h and returns its record. It panics if the
// resource is mapped or views over it are alive.
func (g *Registry) RemoveResource(h api.Resource) *Resource {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec := g.Resource(h)
	if s := rec.MapState(); s != Unmapped {
		panic(fmt.Sprintf("registry: destroying resource %#x while %s", uint64(h), s))
	}
	if n := rec.Views(); n != 0 {
		panic(fmt.Sprintf("registry: destroying resource %#x with %d live views", uint64(h), n))
	}
	g.table.UnregisterKey(identity.KindResource, identity.Key(h))
	return rec
}

// AddView registers rec for native and returns the new handle. The owning
// resource must be registered.
func (g *Registry) AddView(native identity.Holder, rec *View) api.ResourceView {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.table.Contains(identity.KindResource, identity.Key(rec.Resource.Handle)) {
		panic(fmt.Sprintf("registry: view over unregistered resource %#x", uint64(rec.Resource.Handle)))
	}
	rec.Native = native
	rec.Handle = api.ResourceView(g.table.Register(identity.KindResourceView, native, rec))
	rec.Resource.views.Add(1)
	return rec.Handle
}

// View returns the record of h. It panics if h is not registered.
func (g *Registry) View(h api.ResourceView) *View {
	return identity.ResolveAs[*View](g.table, identity.KindResourceView, identity.Key(h))
}

// LookupView returns the record of h, if registered.
func (g *Registry) LookupView(h api.ResourceView) (*View, bool) {
	v, ok := g.table.TryResolve(identity.KindResourceView, identity.Key(h))
	if !ok {
		return nil, false
	}
	return v.(*View), true
}

// ViewFromNative returns the record of a tagged native view.
func (g *Registry) ViewFromNative(native identity.Holder) *View {
	return identity.Get[*View](g.table, identity.KindResourceView, native)
}

// RemoveView unregisters h and returns its record.
func (g *Registry) RemoveView(h api.ResourceView) *View {
	rec := identity.ResolveAs[*View](g.table, identity.KindResourceView, identity.Key(h))
	g.table.UnregisterKey(identity.KindResourceView, identity.Key(h))
	rec.Resource.views.Add(-1)
	return rec
}

// ResourceCount returns the number of live resources. External resources
// are counted when external is true.
func (g *Registry) ResourceCount(external bool) int {
	n := 0
	g.table.Range(identity.KindResource, func(_ identity.Key, v any) bool {
		if external || !v.(*Resource).External {
			n++
		}
		return true
	})
	return n
}

// ViewCount returns the number of live views.
func (g *Registry) ViewCount() int {
	return g.table.Count(identity.KindResourceView)
}
