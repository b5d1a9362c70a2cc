package key

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStringIsUppercaseHex(t *testing.T) {
	if got := Key(0x0123456789abcdef).String(); got != "0123456789ABCDEF" {
		t.Fatalf("String() = %q", got)
	}
	if got := Key(1).String(); got != "0000000000000001" {
		t.Fatalf("String() = %q", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{"0123456789ABCDEF", 0x0123456789ABCDEF},
		{"0123456789abcdef", 0x0123456789ABCDEF},
		{"  FFFFFFFFFFFFFFFF\n", 0xFFFFFFFFFFFFFFFF},
		{"0000000000000001", 1},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"0123456789ABCDE",
		"0123456789ABCDEF0",
		"0x23456789ABCDEF",
		"+123456789ABCDEF",
		"0123456789ABCDEG",
		"0123 456789ABCDE",
	} {
		if _, err := Parse(in); !errors.Is(err, ErrKeyParse) {
			t.Errorf("Parse(%q): expected ErrKeyParse, got %v", in, err)
		}
		if v := ParseLegacy(in); v != 0 {
			t.Errorf("ParseLegacy(%q) = %#x, want 0", in, v)
		}
	}
}

func TestParseZeroKey(t *testing.T) {
	_, err := Parse(strings.Repeat("0", HexLen))
	if !errors.Is(err, ErrWeakKey) || !errors.Is(err, ErrKeyParse) {
		t.Fatalf("expected ErrWeakKey wrapping ErrKeyParse, got %v", err)
	}
}

func TestGenerate(t *testing.T) {
	seen := map[Key]bool{}
	for i := 0; i < 32; i++ {
		k, err := Generate()
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if k == 0 {
			t.Fatal("Generate returned the zero key")
		}
		if seen[k] {
			t.Fatalf("Generate repeated key %v", k)
		}
		seen[k] = true

		back, err := Parse(k.String())
		if err != nil || back != k {
			t.Fatalf("Parse(String()) = %v, %v; want %v", back, err, k)
		}
	}
}

func TestFingerprint(t *testing.T) {
	a := Key(0x0123456789ABCDEF)
	if a.Fingerprint() != a.Fingerprint() {
		t.Fatal("fingerprint not deterministic")
	}
	if len(a.Fingerprint()) != 16 {
		t.Fatalf("fingerprint %q", a.Fingerprint())
	}
	if a.Fingerprint() == Key(0x0123456789ABCDEE).Fingerprint() {
		t.Fatal("adjacent keys share a fingerprint")
	}
	if strings.Contains(strings.ToUpper(a.Fingerprint()), a.String()) {
		t.Fatal("fingerprint leaks the key")
	}
}

func TestKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	k := Key(0xDEADBEEFCAFEF00D)
	if err := WriteFile(path, k); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "DEADBEEFCAFEF00D" {
		t.Fatalf("key file contents %q", raw)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != k {
		t.Fatalf("ReadFile = %v", got)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.key")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestTextMarshaling(t *testing.T) {
	type doc struct {
		K Key `json:"k"`
	}
	data, err := json.Marshal(doc{K: 0x0123456789ABCDEF})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"k":"0123456789ABCDEF"}` {
		t.Fatalf("marshal = %s", data)
	}
	var back doc
	if err := json.Unmarshal(data, &back); err != nil || back.K != 0x0123456789ABCDEF {
		t.Fatalf("unmarshal = %v, %v", back.K, err)
	}
	if err := json.Unmarshal([]byte(`{"k":"nothex"}`), &back); !errors.Is(err, ErrKeyParse) {
		t.Fatalf("expected ErrKeyParse, got %v", err)
	}
}
