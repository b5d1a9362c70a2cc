package transform

import (
	"axine-go/pkg/codec"
)

type feistelTransform struct{ c *codec.Codec }

// NewFeistelTransform wraps a codec as a pipeline stage. On its own it produces
// exactly the plain .axine format.
func NewFeistelTransform(c *codec.Codec) Transform {
	return &feistelTransform{c: c}
}

func (f *feistelTransform) Apply(plaintext []byte) ([]byte, error) {
	return f.c.EncryptStream(plaintext), nil
}

func (f *feistelTransform) Reverse(ciphertext []byte) ([]byte, error) {
	return f.c.DecryptStream(ciphertext)
}
