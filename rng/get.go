package rng

import (
	"errors"
	"io"
	"time"
)

const maxChunkSize = 1 << 16

var (
	// Reader provides a global instance to read from the RNG.
	Reader io.Reader = reader{}

	rngBytesRead int64
	rngLastFeed  time.Time
)

// reader provides an io.Reader interface.
type reader struct{}

func checkEntropy() (err error) {
	if !rngReady {
		return errNotReady
	}
	if rngBytesRead > reseedAfterBytes() ||
		int64(time.Since(rngLastFeed).Seconds()) > reseedAfterSeconds() {
		select {
		case r := <-rngFeeder:
			rng.Reseed(r)
			rngBytesRead = 0
			rngLastFeed = time.Now()
		case <-time.After(1 * time.Second):
			return errors.New("failed to get new entropy")
		}
	}
	return nil
}

func pseudoRandomData(n int) []byte {
	data := make([]byte, 0, n)
	for len(data) < n {
		chunk := n - len(data)
		if chunk > maxChunkSize {
			chunk = maxChunkSize
		}
		data = append(data, rng.PseudoRandomData(uint(chunk))...)
	}
	rngBytesRead += int64(n)
	return data
}

// Read fills b with random bytes. It reseeds the generator first, if it
// served too many bytes or was not fed for too long.
func Read(b []byte) (n int, err error) {
	rngLock.Lock()
	defer rngLock.Unlock()

	if err := checkEntropy(); err != nil {
		return 0, err
	}

	return copy(b, pseudoRandomData(len(b))), nil
}

// Read implements the io.Reader interface.
func (r reader) Read(b []byte) (n int, err error) {
	return Read(b)
}
