package graph

// CSR is an immutable compressed-sparse-row array: row i occupies
// data[indptr[i]:indptr[i+1]]. It backs frozen automata edge tables and the
// grammar expression store, where ids are dense and append-only.
type CSR[T any] struct {
	indptr []int32
	data   []T
}

// BuildCSR packs the given rows into a CSR array.
func BuildCSR[T any](rows [][]T) CSR[T] {
	indptr := make([]int32, len(rows)+1)
	total := 0
	for i, r := range rows {
		total += len(r)
		indptr[i+1] = int32(total)
	}
	data := make([]T, 0, total)
	for _, r := range rows {
		data = append(data, r...)
	}
	return CSR[T]{indptr: indptr, data: data}
}

// NumRows returns the number of rows.
func (c *CSR[T]) NumRows() int { return len(c.indptr) - 1 }

// Row returns the payload slice of row i. The slice aliases the shared
// backing buffer and must not be mutated.
func (c *CSR[T]) Row(i int32) []T {
	return c.data[c.indptr[i]:c.indptr[i+1]]
}

// Data returns the raw data buffer.
func (c *CSR[T]) Data() []T { return c.data }

// Indptr returns the raw row index vector, of length NumRows()+1.
func (c *CSR[T]) Indptr() []int32 { return c.indptr }

// MemorySize returns the size in bytes of the two backing buffers, assuming
// elemSize bytes per data element.
func (c *CSR[T]) MemorySize(elemSize int) int {
	return len(c.data)*elemSize + len(c.indptr)*4
}

// CSRBuilder accumulates rows one at a time. Freeze consumes the builder.
type CSRBuilder[T any] struct {
	indptr []int32
	data   []T
}

// NewCSRBuilder creates an empty builder.
func NewCSRBuilder[T any]() *CSRBuilder[T] {
	return &CSRBuilder[T]{indptr: []int32{0}}
}

// AppendRow adds a row and returns its id.
func (b *CSRBuilder[T]) AppendRow(row []T) int32 {
	b.data = append(b.data, row...)
	b.indptr = append(b.indptr, int32(len(b.data)))
	return int32(len(b.indptr) - 2)
}

// NumRows returns the number of rows appended so far.
func (b *CSRBuilder[T]) NumRows() int { return len(b.indptr) - 1 }

// Row returns the payload of row i as currently stored.
func (b *CSRBuilder[T]) Row(i int32) []T {
	return b.data[b.indptr[i]:b.indptr[i+1]]
}

// Freeze converts the accumulated rows into an immutable CSR. The builder
// must not be used afterwards.
func (b *CSRBuilder[T]) Freeze() CSR[T] {
	c := CSR[T]{indptr: b.indptr, data: b.data}
	b.indptr = nil
	b.data = nil
	return c
}

// FromArrays reconstructs a CSR from raw arrays, as produced by Data and
// Indptr. Used by the grammar deserializer.
func FromArrays[T any](data []T, indptr []int32) CSR[T] {
	return CSR[T]{indptr: indptr, data: data}
}
