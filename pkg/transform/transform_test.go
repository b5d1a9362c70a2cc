package transform

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"axine-go/pkg/codec"
	"axine-go/pkg/padding"

	"github.com/klauspost/compress/zstd"
)

const testKey = 0x0123456789ABCDEF

func TestEmptyPipelineRejected(t *testing.T) {
	if _, err := NewPayloadProcessor(nil); err == nil {
		t.Fatal("expected error for empty pipeline")
	}
}

func TestFeistelOnlyIsPlainFormat(t *testing.T) {
	p, err := NewPayloadProcessor([]Transform{NewFeistelTransform(codec.New(testKey))})
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := p.Seal([]byte("HELLO"))
	if err != nil {
		t.Fatal(err)
	}
	if got := hex.EncodeToString(sealed); got != "80f8f71bb2388a8f" {
		t.Fatalf("sealed %s", got)
	}
	opened, err := p.Open(sealed)
	if err != nil {
		t.Fatal(err)
	}
	if string(opened) != "HELLO" {
		t.Fatalf("opened %q", opened)
	}
}

func TestCompressThenEncrypt(t *testing.T) {
	z, err := NewZstdTransform(zstd.SpeedFastest)
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewPayloadProcessor([]Transform{z, NewFeistelTransform(codec.New(testKey))})
	if err != nil {
		t.Fatal(err)
	}
	data := bytes.Repeat([]byte("feistel network "), 512)
	sealed, err := p.Seal(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(sealed) >= len(data) {
		t.Fatalf("expected compression, sealed %d bytes from %d", len(sealed), len(data))
	}
	if len(sealed)%8 != 0 {
		t.Fatalf("sealed length %d not block aligned", len(sealed))
	}
	opened, err := p.Open(sealed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(opened, data) {
		t.Fatal("round trip mismatch")
	}
}

func TestOpenWrapsCipherErrors(t *testing.T) {
	p, err := NewPayloadProcessor([]Transform{NewNoOpTransform(), NewFeistelTransform(codec.New(testKey))})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Open(make([]byte, 5)); !errors.Is(err, codec.ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
	if _, err := p.Open(nil); !errors.Is(err, padding.ErrInvalidPadding) {
		t.Fatalf("expected ErrInvalidPadding, got %v", err)
	}
}

func TestLevelFromString(t *testing.T) {
	if l, err := LevelFromString(""); err != nil || l != zstd.SpeedDefault {
		t.Fatalf("empty level: %v %v", l, err)
	}
	if l, err := LevelFromString("fastest"); err != nil || l != zstd.SpeedFastest {
		t.Fatalf("fastest: %v %v", l, err)
	}
	if _, err := LevelFromString("ludicrous"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
