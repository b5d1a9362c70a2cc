// Package trace records the state of one block through every Feistel round and
// renders it as a Graphviz diagram, for teaching and for debugging changes to
// the round function.
package trace

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"axine-go/pkg/feistel"

	"github.com/goccy/go-graphviz"
)

// Round is the state around one encryption round.
type Round struct {
	Index  int
	Subkey uint32
	InL    uint32
	InR    uint32
	F      uint32 // F(InR, Subkey)
	OutL   uint32
	OutR   uint32
}

type Trace struct {
	Key    uint64
	Rounds []Round
}

// Block encrypts (l, r) under k and records every round.
func Block(l, r uint32, k uint64) *Trace {
	t := &Trace{Key: k, Rounds: make([]Round, 0, feistel.NumRounds)}
	s := feistel.NewSchedule(k)
	for i := 0; i < feistel.NumRounds; i++ {
		f := feistel.F(r, s[i])
		rd := Round{Index: i, Subkey: s[i], InL: l, InR: r, F: f}
		l, r = r, l^f
		rd.OutL, rd.OutR = l, r
		t.Rounds = append(t.Rounds, rd)
	}
	return t
}

// Output returns the ciphertext halves.
func (t *Trace) Output() (uint32, uint32) {
	last := t.Rounds[len(t.Rounds)-1]
	return last.OutL, last.OutR
}

const header = `digraph feistel {
    graph [fontname = "monospace" rankdir=TB];
    node [fontname = "courier new" shape=record];
    edge [fontname = "courier new"];
    bgcolor=transparent;
`

// DOT renders the trace as a Graphviz digraph: one record node per state and
// one F node per round fed by the subkey.
func (t *Trace) DOT() string {
	var sb strings.Builder
	sb.WriteString(header)
	if len(t.Rounds) == 0 {
		sb.WriteString("}\n")
		return sb.String()
	}
	first := t.Rounds[0]
	fmt.Fprintf(&sb, "    s0 [label=\"{plaintext|{L %08x|R %08x}}\" color=grey];\n", first.InL, first.InR)
	for _, rd := range t.Rounds {
		n := rd.Index + 1
		fmt.Fprintf(&sb, "    k%d [shape=plaintext label=\"K%d = %08x\"];\n", n, rd.Index, rd.Subkey)
		fmt.Fprintf(&sb, "    f%d [shape=circle label=\"F\"];\n", n)
		fmt.Fprintf(&sb, "    s%d [label=\"{round %d|{L %08x|R %08x}}\"];\n", n, rd.Index, rd.OutL, rd.OutR)
		fmt.Fprintf(&sb, "    k%d -> f%d [style=dashed];\n", n, n)
		fmt.Fprintf(&sb, "    s%d -> f%d [label=\"R\"];\n", n-1, n)
		fmt.Fprintf(&sb, "    f%d -> s%d [label=\"xor L = %08x\"];\n", n, n, rd.F)
		fmt.Fprintf(&sb, "    s%d -> s%d [label=\"R to L\" color=grey];\n", n-1, n)
	}
	sb.WriteString("}\n")
	return sb.String()
}

// Render lays out the diagram in the given format (graphviz.SVG, graphviz.PNG).
func (t *Trace) Render(ctx context.Context, format graphviz.Format) ([]byte, error) {
	graph, err := graphviz.ParseBytes([]byte(t.DOT()))
	if err != nil {
		return nil, fmt.Errorf("trace: parse dot: %w", err)
	}
	g, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("trace: graphviz: %w", err)
	}
	defer g.Close()
	var buf bytes.Buffer
	if err := g.Render(ctx, graph, format, &buf); err != nil {
		return nil, fmt.Errorf("trace: render: %w", err)
	}
	return buf.Bytes(), nil
}

// SVG is Render with graphviz.SVG.
func (t *Trace) SVG(ctx context.Context) ([]byte, error) {
	return t.Render(ctx, graphviz.SVG)
}

// String prints one line per round.
func (t *Trace) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "key %016X\n", t.Key)
	for _, rd := range t.Rounds {
		fmt.Fprintf(&sb, "round %2d  K=%08x  L=%08x R=%08x  F=%08x  ->  L=%08x R=%08x\n",
			rd.Index, rd.Subkey, rd.InL, rd.InR, rd.F, rd.OutL, rd.OutR)
	}
	return sb.String()
}
