// Package hash derives content addresses for entropy records.
package hash

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ErrInvalidAddress is returned for strings that are not a valid hex digest.
var ErrInvalidAddress = errors.New("invalid address")

// Digest returns the raw digest of data.
func (a Algorithm) Digest(data []byte) []byte {
	h := a.New()
	if h == nil {
		return nil
	}
	_, _ = h.Write(data)
	return h.Sum(nil)
}

// Address returns the lowercase hex digest of data.
func (a Algorithm) Address(data []byte) string {
	return hex.EncodeToString(a.Digest(data))
}

// Address returns the lowercase hex digest of data with the default algorithm.
func Address(data []byte) string {
	return DefaultAlgorithm.Address(data)
}

// Verify reports whether address is the digest of data.
func (a Algorithm) Verify(address string, data []byte) bool {
	return a.Address(data) == address
}

// CheckAddress checks that s is a well formed lowercase hex digest of the algorithm.
func (a Algorithm) CheckAddress(s string) error {
	if len(s) != a.Size()*2 {
		return fmt.Errorf("%w: expected %d hex characters, got %d", ErrInvalidAddress, a.Size()*2, len(s))
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: unexpected character %q", ErrInvalidAddress, c)
		}
	}
	return nil
}

// CIDFromAddress returns the CIDv1 (raw codec) for a SHA2-256 hex address.
func CIDFromAddress(address string) (cid.Cid, error) {
	if err := SHA2_256.CheckAddress(address); err != nil {
		return cid.Undef, err
	}
	digest, err := hex.DecodeString(address)
	if err != nil {
		return cid.Undef, err
	}
	mh, err := multihash.Encode(digest, multihash.SHA2_256)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// CID returns the CIDv1 (raw codec, sha2-256 multihash) of data.
func CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// AddressFromCID returns the hex address of a SHA2-256 CID.
func AddressFromCID(s string) (string, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if decoded.Code != multihash.SHA2_256 {
		return "", fmt.Errorf("%w: unsupported multihash %s", ErrInvalidAddress, decoded.Name)
	}
	return hex.EncodeToString(decoded.Digest), nil
}
