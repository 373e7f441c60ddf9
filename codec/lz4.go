package codec

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4 compresses images with the lz4 frame format. Faster than zstd to
// decode, with a lower compression ratio.
type LZ4 struct{}

// Name implements Compressor.
func (LZ4) Name() string { return "lz4" }

// Compress implements Compressor.
func (LZ4) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress implements Compressor.
func (LZ4) Decompress(src []byte, originalSize int) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(src))
	dst := make([]byte, originalSize)
	if _, err := io.ReadFull(zr, dst); err != nil {
		return nil, err
	}
	// Anything past originalSize means the container header lied.
	if n, err := zr.Read(make([]byte, 1)); n != 0 || err != io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	return dst, nil
}
