// Package chunk partitions ordered lists into fixed-maximum-size
// batches, the shape the submission protocol requires.
package chunk

// Chunk is one slice of a larger list. Number is 1-based; Total is the
// batch count of the whole sequence, carried for progress reporting.
type Chunk[T any] struct {
	Number int
	Total  int
	Items  []T
}

// First reports whether this is the first chunk of the sequence.
func (c Chunk[T]) First() bool {
	return c.Number == 1
}

// Last reports whether this is the last chunk of the sequence.
func (c Chunk[T]) Last() bool {
	return c.Number == c.Total
}

// Size returns the number of items in the chunk.
func (c Chunk[T]) Size() int {
	return len(c.Items)
}

// Split partitions items into chunks of at most size elements,
// preserving order; only the final chunk may be smaller. An empty input
// yields no chunks. The chunks alias the input slice.
func Split[T any](items []T, size int) []Chunk[T] {
	if len(items) == 0 || size <= 0 {
		return nil
	}
	total := (len(items) + size - 1) / size
	chunks := make([]Chunk[T], 0, total)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, Chunk[T]{
			Number: len(chunks) + 1,
			Total:  total,
			Items:  items[start:end],
		})
	}
	return chunks
}
