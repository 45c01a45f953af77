package api

// Handles
//
// Handles are opaque to callers. Implementations encode an arena index and a
// generation so a destroyed handle never resolves to a newer object.

// Resource is an opaque handle to a buffer or texture.
type Resource uint64

// ResourceView is an opaque handle to a view over a Resource.
type ResourceView uint64

// Sampler is an opaque handle to a sampler state object.
type Sampler uint64

// Pipeline is an opaque handle to a render or compute pipeline.
type Pipeline uint64

// PipelineLayout is an opaque handle to a pipeline layout.
type PipelineLayout uint64

// DescriptorSet is an opaque handle to a descriptor set.
type DescriptorSet uint64

// DescriptorPool is an opaque handle to the pool backing a descriptor set.
type DescriptorPool uint64

// QueryPool is an opaque handle to a pool of GPU queries.
type QueryPool uint64

// NullHandle is the zero value shared by all handle types.
const NullHandle = 0

// IsNull reports whether r is the null handle.
func (r Resource) IsNull() bool { return r == NullHandle }

// IsNull reports whether v is the null handle.
func (v ResourceView) IsNull() bool { return v == NullHandle }

// IsNull reports whether s is the null handle.
func (s Sampler) IsNull() bool { return s == NullHandle }

// IsNull reports whether p is the null handle.
func (p Pipeline) IsNull() bool { return p == NullHandle }

// IsNull reports whether l is the null handle.
func (l PipelineLayout) IsNull() bool { return l == NullHandle }

// IsNull reports whether s is the null handle.
func (s DescriptorSet) IsNull() bool { return s == NullHandle }

// IsNull reports whether q is the null handle.
func (q QueryPool) IsNull() bool { return q == NullHandle }
