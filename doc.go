// Package seqmap implements a static map of 64-bit integer keys to short
// text values, optimized for building once and reading many times.
//
// The defining property of the format is that all lookup state is encoded in
// a single contiguous byte sequence: the bytes themselves are the data
// structure. An image can be written to a file, memory-mapped read-only, or
// placed in an embedded read-only segment, and queried directly with no
// parsing or deserialization step.
//
// Internally the map is a trie. Each level is indexed by a fixed number of
// bits of the key, starting from the least-significant side; the bits value
// is chosen when the Builder is created and recorded in the image header, so
// a Map refuses bytes built with a different configuration.
//
// # Quick Start
//
//	const bits = 2
//
//	b, _ := seqmap.NewBuilder(bits)
//	b.Insert(42, "Hello!")
//
//	// A second insert under the same key does *not* replace the
//	// previously inserted value.
//	b.Insert(42, "Wonderful!")
//	b.Insert(84, "World!")
//
//	image := b.Build() // the complete byte sequence
//
//	m, _ := seqmap.NewMap(image)
//	m.Get(42)  // "Hello!", true
//	m.Get(84)  // "World!", true
//	m.Get(100) // "", false
//
// # Persistence
//
// WriteFile and OpenFile wrap images in a small self-describing container
// with a CRC32 and optional whole-image compression. Uncompressed containers
// are memory-mapped and queried zero-copy:
//
//	_ = seqmap.WriteFile("lookup.sqm", image)
//	f, _ := seqmap.OpenFile("lookup.sqm")
//	defer f.Close()
//	f.Map.Get(42)
//
// # Concurrency
//
// A Builder is single-owner and not safe for concurrent use. An image is
// immutable, so any number of goroutines may query the same Map, or
// independent Maps over the same bytes, without locking.
package seqmap
