package renderpass

import (
	"encoding/binary"
	"hash/fnv"
)

// Hash is the FNV-1a hash of the key's fields. Color format order matters.
func Hash(k Key) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	put := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:], v)
		_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	}
	put(uint32(len(k.ColorFormats)))
	for _, f := range k.ColorFormats {
		put(uint32(f))
	}
	put(uint32(k.DepthFormat))
	put(k.Samples)
	return h.Sum64()
}
