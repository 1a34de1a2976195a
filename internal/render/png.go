package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
)

// PNGContentType is the media type of encoded cards.
const PNGContentType = "image/png"

// PNGEncoder encodes cards as PNG. It is safe for concurrent use.
type PNGEncoder struct {
	enc *png.Encoder
}

type bufferPool struct{ p sync.Pool }

func (b *bufferPool) Get() *png.EncoderBuffer {
	if v, ok := b.p.Get().(*png.EncoderBuffer); ok {
		return v
	}
	return nil
}

func (b *bufferPool) Put(v *png.EncoderBuffer) { b.p.Put(v) }

// NewPNGEncoder returns an encoder using the given compression level.
func NewPNGEncoder(level png.CompressionLevel) *PNGEncoder {
	return &PNGEncoder{enc: &png.Encoder{CompressionLevel: level, BufferPool: &bufferPool{}}}
}

// ContentType implements Encoder.
func (e *PNGEncoder) ContentType() string { return PNGContentType }

// Encode implements Encoder.
func (e *PNGEncoder) Encode(ctx context.Context, img image.Image) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if emptyImage(img) {
		return nil, errors.New("nothing to encode")
	}

	var buf bytes.Buffer
	if err := e.enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, errors.New("encoder produced no bytes")
	}
	return buf.Bytes(), nil
}
