package transform

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

type zstdTransform struct {
	// encoder and decoder are reused through Reset, which is not safe for
	// concurrent callers.
	mu      sync.Mutex
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	level   zstd.EncoderLevel
}

// NewZstdTransform creates a compression/decompression stage using Zstandard.
// Provide a compression level like zstd.SpeedFastest, zstd.SpeedDefault,
// zstd.SpeedBetterCompression, etc.
func NewZstdTransform(level zstd.EncoderLevel) (Transform, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("zstd: failed to initialize encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: failed to initialize decoder: %w", err)
	}
	return &zstdTransform{
		encoder: enc,
		decoder: dec,
		level:   level,
	}, nil
}

// LevelFromString maps config names ("fastest", "default", "better", "best")
// to encoder levels.
func LevelFromString(s string) (zstd.EncoderLevel, error) {
	if s == "" {
		return zstd.SpeedDefault, nil
	}
	ok, level := zstd.EncoderLevelFromString(s)
	if !ok {
		return 0, fmt.Errorf("zstd: unknown compression level %q", s)
	}
	return level, nil
}

// Apply compresses the data using Zstandard.
func (s *zstdTransform) Apply(data []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	s.encoder.Reset(&buf)
	if _, err := s.encoder.Write(data); err != nil {
		_ = s.encoder.Close()
		return nil, fmt.Errorf("zstd apply (compress): failed to write data: %w", err)
	}
	// Close flushes the last block and finishes the frame.
	if err := s.encoder.Close(); err != nil {
		return nil, fmt.Errorf("zstd apply (compress): failed to close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Reverse decompresses the data using Zstandard.
func (s *zstdTransform) Reverse(data []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.decoder.Reset(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("zstd reverse (decompress): failed to reset decoder: %w", err)
	}
	decompressed, err := io.ReadAll(s.decoder)
	if err != nil {
		return nil, fmt.Errorf("zstd reverse (decompress): failed to read data: %w", err)
	}
	return decompressed, nil
}
