// Package batch splits ordered records into bounded, contiguous batches.
package batch

import "fmt"

// Size bounds accepted by the upload endpoint.
const (
	DefaultSize = 50
	MinSize     = 1
	MaxSize     = 200
)

// ErrInvalidSize is returned for sizes outside MinSize..MaxSize.
var ErrInvalidSize = fmt.Errorf("batch size must be between %d and %d", MinSize, MaxSize)

// Chunk splits items into ceil(len(items)/size) batches that preserve order.
// Every batch except possibly the last has exactly size items. The batches
// share the backing array of items.
func Chunk[T any](items []T, size int) ([][]T, error) {
	if size < MinSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	if len(items) == 0 {
		return nil, nil
	}

	out := make([][]T, 0, Count(len(items), size))
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end:end])
	}
	return out, nil
}

// Count is the number of batches Chunk produces for n items.
func Count(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Clamp forces size into MinSize..MaxSize, using DefaultSize for zero.
func Clamp(size int) int {
	switch {
	case size == 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	default:
		return size
	}
}
