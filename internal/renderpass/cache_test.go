package renderpass

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/gogpu/gputypes"
	"golang.org/x/sync/errgroup"
)

type pass struct{ id int }

func colorKey(formats ...gputypes.TextureFormat) Key {
	return Key{ColorFormats: formats, DepthFormat: gputypes.TextureFormatDepth32Float, Samples: 1}
}

func TestKeyEqual(t *testing.T) {
	base := colorKey(gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA16Float)
	tests := []struct {
		name string
		k    Key
		want bool
	}{
		{"same", colorKey(gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA16Float), true},
		{"order", colorKey(gputypes.TextureFormatRGBA16Float, gputypes.TextureFormatRGBA8Unorm), false},
		{"fewer targets", colorKey(gputypes.TextureFormatRGBA8Unorm), false},
		{"depth", Key{ColorFormats: base.ColorFormats, DepthFormat: gputypes.TextureFormatDepth24PlusStencil8, Samples: 1}, false},
		{"samples", Key{ColorFormats: base.ColorFormats, DepthFormat: base.DepthFormat, Samples: 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.k); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
			if tt.want && Hash(base) != Hash(tt.k) {
				t.Error("equal keys hash differently")
			}
		})
	}
}

func TestGetBuildsOnce(t *testing.T) {
	c := New[*pass]()
	builds := 0
	build := func(Key) (*pass, error) {
		builds++
		return &pass{id: builds}, nil
	}

	a, err := c.Get(colorKey(gputypes.TextureFormatBGRA8Unorm), build)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Get(colorKey(gputypes.TextureFormatBGRA8Unorm), build)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("Get() returned different passes for equal keys")
	}
	if builds != 1 {
		t.Errorf("builds = %d, want 1", builds)
	}

	if _, err := c.Get(colorKey(gputypes.TextureFormatRGBA8Unorm), build); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	hits, misses := c.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("Stats() = (%d, %d), want (1, 2)", hits, misses)
	}
}

func TestKeyIsCopied(t *testing.T) {
	c := New[*pass]()
	formats := []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm}
	first, _ := c.Get(Key{ColorFormats: formats, Samples: 1}, func(Key) (*pass, error) { return &pass{1}, nil })

	formats[0] = gputypes.TextureFormatBGRA8Unorm
	got, _ := c.Get(Key{ColorFormats: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm}, Samples: 1},
		func(Key) (*pass, error) { return &pass{2}, nil })
	if got != first {
		t.Error("mutating the caller's slice changed the cached key")
	}
}

func TestCollisionsCompareStructurally(t *testing.T) {
	c := New[*pass](WithHasher(func(Key) uint64 { return 7 }))
	n := 0
	build := func(Key) (*pass, error) { n++; return &pass{n}, nil }

	keys := []Key{
		colorKey(gputypes.TextureFormatRGBA8Unorm),
		colorKey(gputypes.TextureFormatBGRA8Unorm),
		colorKey(gputypes.TextureFormatRGBA16Float),
	}
	seen := map[*pass]bool{}
	for _, k := range keys {
		p, err := c.Get(k, build)
		if err != nil {
			t.Fatal(err)
		}
		seen[p] = true
	}
	for _, k := range keys {
		p, _ := c.Get(k, build)
		if !seen[p] {
			t.Errorf("Get(%v) after collisions returned an unknown pass", k.ColorFormats)
		}
	}
	if len(seen) != 3 || c.Len() != 3 {
		t.Errorf("distinct passes = %d, Len() = %d, want 3", len(seen), c.Len())
	}
}

func TestBuildErrorIsNotCached(t *testing.T) {
	c := New[*pass]()
	boom := errors.New("boom")
	if _, err := c.Get(colorKey(), func(Key) (*pass, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("Get() error = %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after failed build, want 0", c.Len())
	}
	if _, err := c.Get(colorKey(), func(Key) (*pass, error) { return &pass{}, nil }); err != nil {
		t.Errorf("Get() retry error = %v", err)
	}
}

func TestConcurrentGet(t *testing.T) {
	c := New[*pass]()
	var builds atomic.Int32
	build := func(Key) (*pass, error) {
		builds.Add(1)
		return &pass{}, nil
	}
	formats := []gputypes.TextureFormat{
		gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatRGBA16Float,
		gputypes.TextureFormatDepth32Float,
	}

	var g errgroup.Group
	for i := range 64 {
		g.Go(func() error {
			_, err := c.Get(colorKey(formats[i%len(formats)]), build)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := builds.Load(); got != int32(len(formats)) {
		t.Errorf("builds = %d, want %d", got, len(formats))
	}
}

func TestDrain(t *testing.T) {
	c := New[*pass]()
	for _, f := range []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm} {
		_, _ = c.Get(colorKey(f), func(Key) (*pass, error) { return &pass{}, nil })
	}
	released := 0
	c.Drain(func(*pass) { released++ })
	if released != 2 || c.Len() != 0 {
		t.Errorf("Drain released %d, Len() = %d, want 2 and 0", released, c.Len())
	}
}
