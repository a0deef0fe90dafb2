package entropy

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/safing/entropool/crypto/hash"
	"github.com/safing/entropool/formats/dsd"
)

// Record is an immutable, content addressed slice of entropy.
type Record struct {
	// Address is the lowercase hex SHA2-256 digest of the raw content.
	Address string `json:"address" cbor:"address" msgpack:"address"`
	// Size is the amount of entropy units (bytes).
	Size int `json:"size" cbor:"size" msgpack:"size"`
	// Created is the unix timestamp of the first commit.
	Created int64 `json:"created" cbor:"created" msgpack:"created"`
	// Content is the lowercase hex encoded content.
	Content string `json:"content,omitempty" cbor:"content,omitempty" msgpack:"content,omitempty"`
}

// storedRecord is the persisted form of a record. The address is the key.
type storedRecord struct {
	Size    int    `json:"size" cbor:"size" msgpack:"size"`
	Created int64  `json:"created" cbor:"created" msgpack:"created"`
	Content string `json:"content" cbor:"content" msgpack:"content"`
}

func newRecord(content []byte) *Record {
	return &Record{
		Address: hash.Address(content),
		Size:    len(content),
		Created: time.Now().Unix(),
		Content: hex.EncodeToString(content),
	}
}

// Bytes returns the decoded content of the record.
func (r *Record) Bytes() ([]byte, error) {
	return hex.DecodeString(r.Content)
}

// CID returns the CIDv1 of the record content.
func (r *Record) CID() (cid.Cid, error) {
	return hash.CIDFromAddress(r.Address)
}

// WithoutContent returns a copy of the record without its content.
func (r *Record) WithoutContent() *Record {
	c := *r
	c.Content = ""
	return &c
}

// Verify checks that the content matches the address.
func (r *Record) Verify() error {
	content, err := r.Bytes()
	if err != nil {
		return fmt.Errorf("%w: %s has invalid content encoding: %w", ErrIntegrity, r.Address, err)
	}
	if len(content) != r.Size {
		return fmt.Errorf("%w: %s has size %d, but content is %d units", ErrIntegrity, r.Address, r.Size, len(content))
	}
	if !hash.DefaultAlgorithm.Verify(r.Address, content) {
		return fmt.Errorf("%w: %s does not match its content", ErrIntegrity, r.Address)
	}
	return nil
}

func (r *Record) marshal(format dsd.SerializationFormat) ([]byte, error) {
	return dsd.Dump(&storedRecord{
		Size:    r.Size,
		Created: r.Created,
		Content: r.Content,
	}, format)
}

func unmarshalRecord(address string, data []byte) (*Record, error) {
	stored := &storedRecord{}
	_, err := dsd.Load(data, stored)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrIntegrity, address, err)
	}

	return &Record{
		Address: address,
		Size:    stored.Size,
		Created: stored.Created,
		Content: stored.Content,
	}, nil
}
