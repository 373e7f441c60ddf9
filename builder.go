package seqmap

import (
	"hash/crc32"
	"math"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/seqmap/internal/intern"
)

// slotRef is a construction-time slot: absent, a child node in the arena, or
// a leaf value in the string pool.
type slotRef struct {
	tag byte
	ref uint32 // arena index for internal slots, pool offset for leaves
}

// Builder accumulates key/value pairs in a mutable trie and flattens them
// into an image with Build. It is single-owner and not safe for concurrent
// use; the layout of the resulting image is documented in format.go.
//
// Keys descend the trie least-significant bit group first, consuming `bits`
// bits per level and the remaining 64 mod bits bits at the last level.
type Builder struct {
	bits   uint8
	nodes  [][]slotRef // arena; nodes[0] is the root
	pool   *intern.Pool
	keys   *roaring64.Bitmap
	logger *Logger
	built  bool
}

// NewBuilder creates an empty Builder. bits determines the branching factor
// (2^bits children per node) and therefore trie depth ceil(64/bits); it must
// be in [MinBits, MaxBits] or a *ConfigError is returned.
func NewBuilder(bits int, opts ...BuilderOption) (*Builder, error) {
	if bits < MinBits || bits > MaxBits {
		return nil, &ConfigError{Bits: bits}
	}

	o := builderOptions{logger: NoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Builder{
		bits:   uint8(bits),
		pool:   intern.New(),
		keys:   roaring64.NewBitmap(),
		logger: o.logger,
	}
	b.newNode() // root
	return b, nil
}

// Bits returns the configured bits per trie level.
func (b *Builder) Bits() int {
	return int(b.bits)
}

// Len returns the number of distinct keys inserted so far.
func (b *Builder) Len() int {
	return int(b.keys.GetCardinality())
}

// Contains reports whether key has been inserted.
func (b *Builder) Contains(key uint64) bool {
	return b.keys.Contains(key)
}

// Insert stores value under key. The first value inserted for a key wins:
// inserting the same key again is a silent no-op, not an error.
func (b *Builder) Insert(key uint64, value string) {
	if b.built {
		panic("seqmap: Builder used after Build")
	}
	if !b.keys.CheckedAdd(key) {
		return
	}

	cur := uint32(0)
	k := key
	remaining := 64
	for {
		width := levelWidth(b.bits, remaining)
		idx := k & (1<<width - 1)
		k >>= width
		remaining -= width

		if remaining == 0 {
			// Final level: all 64 bits consumed, the slot is a leaf.
			// Distinct keys have distinct paths, so it is still absent.
			b.nodes[cur][idx] = slotRef{tag: slotLeaf, ref: b.pool.Add(value)}
			return
		}
		if s := b.nodes[cur][idx]; s.tag == slotInternal {
			cur = s.ref
			continue
		}
		child := b.newNode()
		b.nodes[cur][idx] = slotRef{tag: slotInternal, ref: child}
		cur = child
	}
}

func (b *Builder) newNode() uint32 {
	idx := uint32(len(b.nodes))
	b.nodes = append(b.nodes, make([]slotRef, 1<<b.bits))
	return idx
}

// checkOffsetLimits panics when the node table or the string pool has grown
// past what a uint32 slot target can address. Reaching the limit takes a
// multi-gigabyte build; without the check the uint32 offsets wrap and the
// image silently maps keys to the wrong slots.
func checkOffsetLimits(tableLen, poolLen uint64) {
	if tableLen > math.MaxUint32 {
		panic("seqmap: node table exceeds uint32 offset range")
	}
	if poolLen > math.MaxUint32 {
		panic("seqmap: string pool exceeds uint32 offset range")
	}
}

// Build flattens the trie into a self-contained image. Two passes: the first
// assigns every node a byte offset (BFS order, so a node's offset is fixed
// before its children are emitted), the second writes the header, the node
// table and the string pool. Build consumes the Builder; any further use
// panics. Build also panics when the node table or the pool outgrows the
// uint32 offsets slot records hold.
func (b *Builder) Build() []byte {
	if b.built {
		panic("seqmap: Builder used after Build")
	}
	b.built = true

	// Pass 1: BFS offset assignment. pos maps arena index to emission order.
	order := make([]uint32, 0, len(b.nodes))
	pos := make([]uint32, len(b.nodes))
	queue := []uint32{0}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		pos[n] = uint32(len(order))
		order = append(order, n)
		for _, s := range b.nodes[n] {
			if s.tag == slotInternal {
				queue = append(queue, s.ref)
			}
		}
	}

	nodeSize := uint64(slotSize) << b.bits
	tableLen := uint64(len(b.nodes)) * nodeSize
	pool := b.pool.Bytes()
	checkOffsetLimits(tableLen, uint64(len(pool)))

	h := header{
		bits:      b.bits,
		nodeCount: uint32(len(b.nodes)),
		rootOff:   headerSize,
		poolOff:   headerSize + tableLen,
		poolLen:   uint64(len(pool)),
	}

	// Pass 2: emission. Every reference is resolved from pass 1, so the
	// image is written front to back with no backpatching beyond the
	// checksum field.
	buf := make([]byte, 0, headerSize+tableLen+uint64(len(pool)))
	buf = h.append(buf)
	for _, n := range order {
		for _, s := range b.nodes[n] {
			var rec [slotSize]byte
			switch s.tag {
			case slotInternal:
				rec[0] = slotInternal
				putSlotOffset(rec[:], pos[s.ref]*uint32(nodeSize))
			case slotLeaf:
				rec[0] = slotLeaf
				putSlotOffset(rec[:], s.ref)
			}
			buf = append(buf, rec[:]...)
		}
	}
	buf = append(buf, pool...)
	putChecksum(buf, crc32.ChecksumIEEE(buf[headerSize:]))

	b.logger.Debug("image built",
		"bits", b.bits,
		"keys", b.keys.GetCardinality(),
		"nodes", len(b.nodes),
		"pool_bytes", len(pool),
		"image_bytes", len(buf),
	)

	// The construction trie has no existence past this point.
	b.nodes = nil
	b.pool = nil
	b.keys = nil
	return buf
}
