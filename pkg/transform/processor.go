package transform

import (
	"errors"
	"fmt"
)

type PayloadProcessor struct {
	// Applied 0..N when encrypting, N..0 when decrypting.
	transforms []Transform
}

// NewPayloadProcessor creates a processor with a defined pipeline.
// Requires at least one transform. Use NewNoOpTransform() for an explicitly empty pipeline.
func NewPayloadProcessor(pipelineTransforms []Transform) (*PayloadProcessor, error) {
	if len(pipelineTransforms) == 0 {
		return nil, errors.New("payload processor requires at least one transform; use NewNoOpTransform() for an empty pipeline")
	}

	s := make([]Transform, len(pipelineTransforms))
	copy(s, pipelineTransforms)

	return &PayloadProcessor{
		transforms: s,
	}, nil
}

// Seal applies the pipeline transformations in forward order (0..N).
func (p *PayloadProcessor) Seal(payload []byte) ([]byte, error) {
	var err error
	current := payload
	for i, t := range p.transforms {
		current, err = t.Apply(current)
		if err != nil {
			return nil, fmt.Errorf("seal: transform %d (%T) Apply failed: %w", i, t, err)
		}
	}
	return current, nil
}

// Open applies the pipeline transformations in reverse order (N..0).
func (p *PayloadProcessor) Open(payload []byte) ([]byte, error) {
	var err error
	current := payload
	for i := len(p.transforms) - 1; i >= 0; i-- {
		t := p.transforms[i]
		current, err = t.Reverse(current)
		if err != nil {
			return nil, fmt.Errorf("open: transform %d (%T) Reverse failed: %w", i, t, err)
		}
	}
	return current, nil
}
