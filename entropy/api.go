package entropy

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/safing/entropool/api"
	"github.com/safing/entropool/crypto/hash"
	"github.com/safing/entropool/formats/dsd"
)

var errNotReady = errors.New("entropy pool is not ready")

func registerAPIEndpoints() error {
	api.RegisterErrorStatus(errNotReady, http.StatusServiceUnavailable)

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "entropy/pool/snapshot",
		StructFunc:  handlePoolSnapshot,
		Name:        "Snapshot Entropy Pool",
		Description: "Returns the current content of the entropy pool and clears it.",
	}); err != nil {
		return err
	}

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "entropy/pool/stats",
		StructFunc:  handlePoolStats,
		Name:        "Entropy Pool Statistics",
		Description: "Returns statistics of the entropy pool.",
	}); err != nil {
		return err
	}

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "entropy/submit",
		Method:      http.MethodPost,
		StructFunc:  handleSubmit,
		Name:        "Submit Entropy",
		Description: "Stores the hex encoded body as an entropy record. The size parameter must match the decoded length.",
		Parameters: []api.Parameter{{
			Method:      http.MethodPost,
			Field:       "size",
			Description: "Size of the submitted entropy in bytes.",
		}, {
			Method:      http.MethodPost,
			Field:       "pool",
			Value:       "true",
			Description: "Add the entropy to the pool instead of storing it as a record.",
		}},
	}); err != nil {
		return err
	}

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "entropy/request",
		Method:      http.MethodPost,
		StructFunc:  handleRequest,
		Name:        "Request Entropy",
		Description: "Draws entropy from the pool, fetching from the remote service as needed, and stores it as a record.",
		Parameters: []api.Parameter{{
			Method:      http.MethodPost,
			Field:       "size",
			Description: "Size of the record in bytes.",
		}},
	}); err != nil {
		return err
	}

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "entropy/{address}",
		MimeType:    api.MimeTypeJSON,
		DataFunc:    handleLookup,
		Name:        "Get Entropy Record",
		Description: "Returns the entropy record with the given address or CID.",
		Parameters: []api.Parameter{{
			Method:      http.MethodGet,
			Field:       "content",
			Value:       "false",
			Description: "Omit the content of the record.",
		}, {
			Method:      http.MethodGet,
			Field:       "checksum",
			Value:       "sha3-256|blake2b-256|blake3",
			Description: "Add a checksum of the content with another hash algorithm.",
		}},
	}); err != nil {
		return err
	}

	return nil
}

func getPool() (*Pool, error) {
	pool := DefaultPool()
	if pool == nil {
		return nil, errNotReady
	}
	return pool, nil
}

func handlePoolSnapshot(ar *api.Request) (i interface{}, err error) {
	pool, err := getPool()
	if err != nil {
		return nil, err
	}
	return pool.Snapshot(ar.Ctx())
}

func handlePoolStats(_ *api.Request) (i interface{}, err error) {
	pool, err := getPool()
	if err != nil {
		return nil, err
	}
	return pool.Stats(), nil
}

func handleSubmit(ar *api.Request) (i interface{}, err error) {
	pool, err := getPool()
	if err != nil {
		return nil, err
	}

	size, err := ar.QueryInt("size", -1)
	if err != nil {
		return nil, err
	}
	toPool, err := ar.QueryBool("pool", false)
	if err != nil {
		return nil, err
	}

	content, err := hex.DecodeString(strings.TrimSpace(string(ar.InputData)))
	if err != nil {
		return nil, api.BadRequest("content is not valid hex: %s", err)
	}
	if size < 0 {
		return nil, api.BadRequest("size parameter is required")
	}
	if int64(len(content)) != size {
		return nil, api.BadRequest("size %d does not match content length %d", size, len(content))
	}

	if toPool {
		// Pooled content may be smaller than a record, but never larger.
		if _, maxSize := pool.Store().Bounds(); len(content) > maxSize {
			return nil, &SizeError{Size: len(content), Bound: maxSize}
		}
		pool.Seed(content)
		return pool.Stats(), nil
	}
	return pool.Commit(ar.Ctx(), content)
}

func handleRequest(ar *api.Request) (i interface{}, err error) {
	pool, err := getPool()
	if err != nil {
		return nil, err
	}

	size, err := ar.QueryInt("size", -1)
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, api.BadRequest("size parameter is required")
	}

	return pool.Request(ar.Ctx(), int(size))
}

func handleLookup(ar *api.Request) (data []byte, err error) {
	pool, err := getPool()
	if err != nil {
		return nil, err
	}

	withContent, err := ar.QueryBool("content", true)
	if err != nil {
		return nil, err
	}
	var checksumAlg hash.Algorithm
	if name := ar.Request.URL.Query().Get("checksum"); name != "" {
		var ok bool
		checksumAlg, ok = hash.ParseAlgorithm(name)
		if !ok {
			return nil, api.BadRequest("unknown checksum algorithm %q", name)
		}
	}

	address := strings.ToLower(ar.URLVars["address"])
	if hash.DefaultAlgorithm.CheckAddress(address) != nil {
		// Try as CID.
		address, err = hash.AddressFromCID(ar.URLVars["address"])
		if err != nil {
			return nil, err
		}
	}

	r, err := pool.Store().Lookup(address)
	if err != nil {
		return nil, err
	}
	c, err := r.CID()
	if err != nil {
		return nil, err
	}

	data, err = dsd.DumpWithoutIdentifier(r, dsd.JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record: %w", err)
	}
	data, err = sjson.SetBytes(data, "cid", c.String())
	if err != nil {
		return nil, err
	}
	if checksumAlg != 0 {
		content, err := r.Bytes()
		if err != nil {
			return nil, err
		}
		data, err = sjson.SetBytes(data, "checksum", map[string]string{
			"algorithm": checksumAlg.String(),
			"digest":    hex.EncodeToString(checksumAlg.Digest(content)),
		})
		if err != nil {
			return nil, err
		}
	}
	if !withContent {
		data, err = sjson.DeleteBytes(data, "content")
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}
