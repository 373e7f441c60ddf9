// Package intern accumulates the string pool of an image: each value is
// stored once as a length-prefixed byte run, and repeated values are
// deduplicated to a single entry.
package intern

import "encoding/binary"

// Pool builds the string pool region of an image.
// The zero value is not usable; call New.
type Pool struct {
	buf  []byte
	seen map[string]uint32
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{seen: make(map[string]uint32)}
}

// Add stores s and returns its byte offset within the pool. Adding a value
// that was seen before returns the offset of the existing entry.
func (p *Pool) Add(s string) uint32 {
	if off, ok := p.seen[s]; ok {
		return off
	}
	off := uint32(len(p.buf))
	p.buf = binary.LittleEndian.AppendUint32(p.buf, uint32(len(s)))
	p.buf = append(p.buf, s...)
	p.seen[s] = off
	return off
}

// Bytes returns the accumulated pool region.
func (p *Pool) Bytes() []byte {
	return p.buf
}

// Len returns the pool size in bytes.
func (p *Pool) Len() int {
	return len(p.buf)
}
