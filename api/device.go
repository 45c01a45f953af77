package api

import "github.com/gogpu/gputypes"

// Object is implemented by every core object that owns private data.
type Object interface {
	// GetPrivateData returns the value stored under guid, or zero.
	GetPrivateData(guid GUID) uint64

	// SetPrivateData stores value under guid. A zero value removes the entry.
	SetPrivateData(guid GUID, value uint64)
}

// Device is the backend-neutral device interface. Every backend implements
// the whole interface; backend differences are hidden behind it.
//
// Unless noted otherwise methods are safe for concurrent use. Destroy calls
// for a handle must not race with other calls using the same handle.
type Device interface {
	Object

	// API returns the native API flavor.
	API() DeviceAPI

	// CheckCapability reports whether cap is supported. The answer never
	// changes during the device lifetime.
	CheckCapability(c DeviceCaps) bool

	// CheckFormatSupport reports whether format supports every usage in
	// usage.
	CheckFormatSupport(format gputypes.TextureFormat, usage ResourceUsage) bool

	// CreateSampler creates a sampler state object.
	CreateSampler(desc SamplerDesc) (Sampler, error)

	// DestroySampler destroys a sampler. Null handles are ignored.
	DestroySampler(s Sampler)

	// CreateResource creates a buffer or texture. initial optionally holds one
	// entry per subresource. shared is nil unless desc has FlagShared.
	CreateResource(desc ResourceDesc, initial []SubresourceData, state ResourceUsage, shared *SharedHandle) (Resource, error)

	// DestroyResource destroys a resource. It panics if the resource is
	// mapped or still has views. Null handles are ignored.
	DestroyResource(r Resource)

	// GetResourceDesc returns the description the resource was created with.
	GetResourceDesc(r Resource) ResourceDesc

	// CreateResourceView creates a view of usage type usage over r.
	CreateResourceView(r Resource, usage ResourceUsage, desc ResourceViewDesc) (ResourceView, error)

	// DestroyResourceView destroys a view. Null handles are ignored.
	DestroyResourceView(v ResourceView)

	// GetResourceFromView returns the resource v was created over.
	GetResourceFromView(v ResourceView) Resource

	// GetResourceViewDesc returns the description v was created with.
	GetResourceViewDesc(v ResourceView) ResourceViewDesc

	// SetResourceName attaches a debug name to r.
	SetResourceName(r Resource, name string)

	// SetResourceViewName attaches a debug name to v.
	SetResourceViewName(v ResourceView, name string)

	// MapBufferRegion maps size bytes at offset of a buffer. A size of zero
	// maps the rest of the buffer.
	MapBufferRegion(r Resource, offset, size uint64, access MapAccess) ([]byte, error)

	// UnmapBufferRegion releases a buffer mapping.
	UnmapBufferRegion(r Resource)

	// MapTextureRegion maps one texture subresource, or the box within it.
	MapTextureRegion(r Resource, subresource uint32, box *SubresourceBox, access MapAccess) (SubresourceData, error)

	// UnmapTextureRegion releases a texture mapping and flushes writes.
	UnmapTextureRegion(r Resource, subresource uint32)

	// UpdateBufferRegion queues a write of data at offset of a buffer.
	UpdateBufferRegion(data []byte, r Resource, offset uint64) error

	// UpdateTextureRegion queues a write of data into a texture subresource.
	UpdateTextureRegion(data SubresourceData, r Resource, subresource uint32, box *SubresourceBox) error

	// CreatePipeline creates a render or compute pipeline from subobjects.
	CreatePipeline(layout PipelineLayout, subobjects []PipelineSubobject) (Pipeline, error)

	// DestroyPipeline destroys a pipeline. Null handles are ignored.
	DestroyPipeline(p Pipeline)

	// CreatePipelineLayout creates an immutable pipeline layout.
	CreatePipelineLayout(params []PipelineLayoutParam) (PipelineLayout, error)

	// DestroyPipelineLayout destroys a layout. Null handles are ignored.
	DestroyPipelineLayout(l PipelineLayout)

	// AllocateDescriptorSets allocates count sets for parameter param of
	// layout from the persistent pool.
	AllocateDescriptorSets(count uint32, layout PipelineLayout, param uint32) ([]DescriptorSet, error)

	// AllocateTransientDescriptorSets allocates count sets from the current
	// transient pool. They are reclaimed when the ring wraps around.
	AllocateTransientDescriptorSets(count uint32, layout PipelineLayout, param uint32) ([]DescriptorSet, error)

	// FreeDescriptorSets returns persistent sets to their pool.
	FreeDescriptorSets(sets []DescriptorSet)

	// AdvanceTransientDescriptorPool rotates the transient pool ring. It must
	// be called from a single thread, once per frame.
	AdvanceTransientDescriptorPool()

	// IsDescriptorSetValid reports whether set may still be used.
	IsDescriptorSetValid(set DescriptorSet) bool

	// GetDescriptorPoolOffset returns the pool and slot offset holding the
	// descriptor at binding and arrayOffset of set.
	GetDescriptorPoolOffset(set DescriptorSet, binding, arrayOffset uint32) (DescriptorPool, uint32)

	// CopyDescriptorSets applies copies in order.
	CopyDescriptorSets(copies []DescriptorSetCopy) error

	// UpdateDescriptorSets applies updates in order.
	UpdateDescriptorSets(updates []DescriptorSetUpdate) error

	// ReadDescriptors returns a copy of count descriptors of set.
	ReadDescriptors(set DescriptorSet, binding, arrayOffset, count uint32) []Descriptor

	// CreateQueryPool creates a pool of size queries.
	CreateQueryPool(t QueryType, size uint32) (QueryPool, error)

	// DestroyQueryPool destroys a query pool. Null handles are ignored.
	DestroyQueryPool(q QueryPool)

	// GetQueryPoolResults copies count results starting at first into
	// results. Without wait it returns ErrNotReady until the queries have
	// completed on the device timeline.
	GetQueryPoolResults(q QueryPool, first, count uint32, results []uint64, wait bool) error

	// WaitIdle blocks until the device has finished all submitted work.
	WaitIdle() error

	// Destroy releases the device. Every object it created must have been
	// destroyed and its private data drained.
	Destroy()
}

// Swapchain exposes the back buffers of a presentation surface as ordinary
// resources.
type Swapchain interface {
	Object

	// Device returns the device the swap chain presents from.
	Device() Device

	// GetBackBuffer returns the resource of back buffer index. Only the
	// current back buffer has a live resource; other indices return the
	// null handle.
	GetBackBuffer(index uint32) Resource

	// GetBackBufferCount returns the number of back buffers.
	GetBackBufferCount() uint32

	// GetCurrentBackBufferIndex returns the index of the back buffer being
	// rendered this frame.
	GetCurrentBackBufferIndex() uint32

	// OnInit (re)configures the swap chain and registers its back buffers.
	OnInit() error

	// OnReset releases the back buffers before reconfiguration.
	OnReset()

	// OnPresent presents the current back buffer, rotates the device's
	// transient descriptor pool and registers the next back buffer.
	OnPresent() error

	// Destroy releases the back buffers. The swap chain's private data must
	// have been drained.
	Destroy()
}
