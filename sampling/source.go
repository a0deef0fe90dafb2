package sampling

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// ByteSource serves raw entropy bytes.
type ByteSource interface {
	NextBytes(ctx context.Context, n int) ([]byte, error)
}

// HexSource serves entropy as lowercase hex characters. Sources that
// implement it are used for hex strings instead of encoding bytes.
type HexSource interface {
	NextHex(ctx context.Context, n int) (string, error)
}

// ReaderSource serves bytes from an io.Reader. Reads are serialized, so a
// single reader can be shared by concurrent callers.
type ReaderSource struct {
	lock sync.Mutex
	r    io.Reader
}

// NewReaderSource returns a byte source reading from r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

// NextBytes reads n bytes from the reader.
func (rs *ReaderSource) NextBytes(ctx context.Context, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rs.lock.Lock()
	defer rs.lock.Unlock()

	data := make([]byte, n)
	if _, err := io.ReadFull(rs.r, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return data, nil
}

// bytesAsHex serves hex characters from a byte source.
type bytesAsHex struct {
	src ByteSource
}

func (bh bytesAsHex) NextHex(ctx context.Context, n int) (string, error) {
	data, err := bh.src.NextBytes(ctx, (n+1)/2)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data)[:n], nil
}
