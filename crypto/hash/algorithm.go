package hash

import (
	"crypto/sha256"
	"hash"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Algorithm is a hash algorithm usable for content addressing.
type Algorithm uint8

// Supported Algorithms.
const (
	SHA2_256 Algorithm = 1 + iota
	SHA3_256
	BLAKE2B_256
	BLAKE3
)

// DefaultAlgorithm is the algorithm used for entropy record addresses.
const DefaultAlgorithm = SHA2_256

var (
	names = map[Algorithm]string{
		SHA2_256:    "SHA2-256",
		SHA3_256:    "SHA3-256",
		BLAKE2B_256: "BLAKE2b-256",
		BLAKE3:      "BLAKE3",
	}

	functions = map[Algorithm]func() hash.Hash{
		SHA2_256:    sha256.New,
		SHA3_256:    sha3.New256,
		BLAKE2B_256: newBlake2b256,
		BLAKE3:      newBlake3,
	}
)

func newBlake2b256() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only fails with an invalid key
		panic(err)
	}
	return h
}

func newBlake3() hash.Hash {
	return blake3.New()
}

// ParseAlgorithm returns the algorithm with the given name. Matching is case-insensitive.
func ParseAlgorithm(name string) (Algorithm, bool) {
	for alg, algName := range names {
		if strings.EqualFold(algName, name) {
			return alg, true
		}
	}
	return 0, false
}

// String returns the name of the algorithm.
func (a Algorithm) String() string {
	return names[a]
}

// New returns a new hash.Hash of the algorithm, or nil if the algorithm is unknown.
func (a Algorithm) New() hash.Hash {
	fn, ok := functions[a]
	if !ok {
		return nil
	}
	return fn()
}

// Size returns the digest size in bytes.
func (a Algorithm) Size() int {
	h := a.New()
	if h == nil {
		return 0
	}
	return h.Size()
}
