// Package codec centralizes whole-image compression for containers at rest.
//
// Codec selection is a compatibility boundary: the container header stores
// the codec name, and bytes written with a codec can only be read while that
// codec remains registered here.
package codec

// Compressor compresses and decompresses complete image payloads.
// Implementations must be safe for concurrent use.
type Compressor interface {
	// Name is the stable identifier stored in container headers.
	Name() string
	// Compress returns the encoded form of src.
	Compress(src []byte) ([]byte, error)
	// Decompress restores a payload of originalSize bytes from src.
	Decompress(src []byte, originalSize int) ([]byte, error)
}

// Default is the compressor used when none is configured.
var Default Compressor = None{}

// ByName returns a built-in compressor by its stable name.
func ByName(name string) (Compressor, bool) {
	switch name {
	case "none":
		return None{}, true
	case "zstd":
		return Zstd{}, true
	case "lz4":
		return LZ4{}, true
	default:
		return nil, false
	}
}

// None is the identity compressor.
type None struct{}

// Name implements Compressor.
func (None) Name() string { return "none" }

// Compress implements Compressor.
func (None) Compress(src []byte) ([]byte, error) { return src, nil }

// Decompress implements Compressor.
func (None) Decompress(src []byte, _ int) ([]byte, error) { return src, nil }
