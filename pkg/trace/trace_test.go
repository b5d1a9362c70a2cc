package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"axine-go/pkg/feistel"
)

func TestTraceMatchesEncrypt(t *testing.T) {
	const k = 0x0123456789ABCDEF
	tr := Block(0x01234567, 0x89abcdef, k)
	if len(tr.Rounds) != feistel.NumRounds {
		t.Fatalf("expected %d rounds, got %d", feistel.NumRounds, len(tr.Rounds))
	}
	l, r := tr.Output()
	wl, wr := feistel.Encrypt(0x01234567, 0x89abcdef, k)
	if l != wl || r != wr {
		t.Fatalf("trace output (%#x, %#x), Encrypt (%#x, %#x)", l, r, wl, wr)
	}
	for i, rd := range tr.Rounds {
		if rd.Subkey != feistel.Subkey(k, i) {
			t.Fatalf("round %d subkey %#x", i, rd.Subkey)
		}
		if rd.OutL != rd.InR || rd.OutR != rd.InL^rd.F {
			t.Fatalf("round %d is not a Feistel step: %+v", i, rd)
		}
		if i > 0 && (rd.InL != tr.Rounds[i-1].OutL || rd.InR != tr.Rounds[i-1].OutR) {
			t.Fatalf("round %d input does not chain from round %d", i, i-1)
		}
	}
}

func TestDOT(t *testing.T) {
	dot := Block(0x48454c4c, 0x4f030303, 0x0123456789ABCDEF).DOT()
	if !strings.HasPrefix(dot, "digraph feistel {") || !strings.HasSuffix(dot, "}\n") {
		t.Fatalf("malformed dot:\n%s", dot)
	}
	if !strings.Contains(dot, "K0 = 89abcdef") {
		t.Fatalf("first subkey missing:\n%s", dot)
	}
	if !strings.Contains(dot, "L 80f8f71b|R b2388a8f") {
		t.Fatalf("final state missing:\n%s", dot)
	}
	if got := strings.Count(dot, "shape=circle"); got != feistel.NumRounds {
		t.Fatalf("expected %d F nodes, got %d", feistel.NumRounds, got)
	}
}

func TestString(t *testing.T) {
	s := Block(1, 2, 0xFEDCBA9876543210).String()
	if !strings.HasPrefix(s, "key FEDCBA9876543210\n") {
		t.Fatalf("header: %q", s)
	}
	if got := strings.Count(s, "\n"); got != feistel.NumRounds+1 {
		t.Fatalf("expected %d lines, got %d", feistel.NumRounds+1, got)
	}
}

func TestSVG(t *testing.T) {
	svg, err := Block(1, 2, 3).SVG(context.Background())
	if err != nil {
		t.Fatalf("SVG failed: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Fatalf("output is not svg: %.200s", svg)
	}
}
