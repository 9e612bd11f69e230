package session

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
)

// Compression selects how snapshot files are compressed on disk
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// ParseCompression converts a config string to a Compression. Empty means none.
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionGzip:
		return CompressionGzip, nil
	case CompressionZstd:
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("unknown compression %q (none/gzip/zstd)", s)
	}
}

// Codec serializes window snapshots. Writes use the configured compression;
// reads sniff the payload so files written under another mode still load.
type Codec struct {
	compression Compression
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
}

// NewCodec creates a codec for the given compression mode
func NewCodec(compression Compression) (*Codec, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Codec{
		compression: compression,
		encoder:     encoder,
		decoder:     decoder,
	}, nil
}

// Ext returns the file extension for snapshots written by this codec
func (c *Codec) Ext() string {
	switch c.compression {
	case CompressionGzip:
		return ".json.gz"
	case CompressionZstd:
		return ".json.zst"
	default:
		return ".json"
	}
}

// Encode marshals a snapshot and compresses it
func (c *Codec) Encode(w *types.WindowSnapshot) ([]byte, error) {
	data, err := sonic.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	switch c.compression {
	case CompressionGzip:
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return nil, fmt.Errorf("gzip snapshot: %w", err)
		}
		if err := gz.Close(); err != nil {
			return nil, fmt.Errorf("gzip snapshot: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		return c.encoder.EncodeAll(data, nil), nil
	default:
		return data, nil
	}
}

// Decode decompresses and unmarshals a snapshot. Unknown fields are ignored.
func (c *Codec) Decode(data []byte) (*types.WindowSnapshot, error) {
	raw, err := c.decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	var w types.WindowSnapshot
	if err := sonic.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if w.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing window id", ErrCorruptSnapshot)
	}
	w.Normalize()
	return &w, nil
}

func (c *Codec) decompress(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return c.decoder.DecodeAll(data, nil)
	case bytes.HasPrefix(data, gzipMagic):
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(gz)
	default:
		return data, nil
	}
}

// Close releases the zstd encoder and decoder
func (c *Codec) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
