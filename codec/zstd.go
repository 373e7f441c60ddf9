package codec

import "github.com/klauspost/compress/zstd"

// Shared stateless coders: EncodeAll/DecodeAll are safe for concurrent use.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Zstd compresses images with zstandard. Good default for cold storage.
type Zstd struct{}

// Name implements Compressor.
func (Zstd) Name() string { return "zstd" }

// Compress implements Compressor.
func (Zstd) Compress(src []byte) ([]byte, error) {
	return zstdEncoder.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

// Decompress implements Compressor.
func (Zstd) Decompress(src []byte, originalSize int) ([]byte, error) {
	return zstdDecoder.DecodeAll(src, make([]byte, 0, originalSize))
}
