// Package container provides a byte queue that avoids copying on append.
package container

import "errors"

// ErrNotEnoughData is returned when the container holds less data than requested.
var ErrNotEnoughData = errors.New("container: not enough data to return")

// Container is a FIFO queue of byte slices. Appended slices are kept as
// they are and only merged when contiguous data is requested. A Container
// is not safe for concurrent use.
type Container struct {
	chunks [][]byte
	length int
}

// New creates a container holding the given slices. Data is NOT copied.
func New(data ...[]byte) *Container {
	c := &Container{}
	for _, d := range data {
		c.Append(d)
	}
	return c
}

// Append appends data to the end. Data is NOT copied.
func (c *Container) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	c.chunks = append(c.chunks, data)
	c.length += len(data)
}

// AppendCopy appends a copy of data to the end.
func (c *Container) AppendCopy(data []byte) {
	c.Append(clone(data))
}

// Length returns the number of bytes held.
func (c *Container) Length() int {
	return c.length
}

// Clear drops all held data.
func (c *Container) Clear() {
	c.chunks = nil
	c.length = 0
}

// CompileData returns all held data as one slice, without consuming it.
// The returned slice shares memory with the container.
func (c *Container) CompileData() []byte {
	c.merge(c.length)
	if len(c.chunks) == 0 {
		return nil
	}
	return c.chunks[0]
}

// Peek returns the first n bytes without consuming them. The returned
// slice shares memory with the container.
func (c *Container) Peek(n int) ([]byte, error) {
	if n > c.length {
		return nil, ErrNotEnoughData
	}
	c.merge(n)
	if n <= 0 {
		return nil, nil
	}
	return c.chunks[0][:n], nil
}

// Get consumes and returns a copy of the first n bytes.
func (c *Container) Get(n int) ([]byte, error) {
	if n > c.length {
		return nil, ErrNotEnoughData
	}
	return c.GetMax(n), nil
}

// GetMax consumes and returns a copy of up to n bytes.
func (c *Container) GetMax(n int) []byte {
	n = min(n, c.length)
	if n <= 0 {
		return []byte{}
	}

	out := make([]byte, 0, n)
	for len(out) < n {
		head := c.chunks[0]
		take := min(len(head), n-len(out))
		out = append(out, head[:take]...)
		if take == len(head) {
			c.chunks[0] = nil
			c.chunks = c.chunks[1:]
		} else {
			c.chunks[0] = head[take:]
		}
	}
	c.length -= n
	if c.length == 0 {
		c.chunks = nil
	}
	return out
}

// merge makes sure the first chunk holds at least n bytes, if available.
func (c *Container) merge(n int) {
	if len(c.chunks) == 0 || len(c.chunks[0]) >= n {
		return
	}

	var merged []byte
	taken := 0
	for taken < len(c.chunks) && len(merged) < n {
		merged = append(merged, c.chunks[taken]...)
		taken++
	}
	c.chunks = append([][]byte{merged}, c.chunks[taken:]...)
}

func clone(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	return append(make([]byte, 0, len(data)), data...)
}
