package dsd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTP Related Errors.
var (
	ErrMissingBody        = errors.New("dsd: missing http body")
	ErrMissingContentType = errors.New("dsd: missing http content type")
)

const (
	httpHeaderContentType = "Content-Type"
)

// LoadFromHTTPRequest loads the data from the body into the given interface.
func LoadFromHTTPRequest(r *http.Request, t interface{}) (format SerializationFormat, err error) {
	return loadFromHTTP(r.Body, r.Header.Get(httpHeaderContentType), t)
}

// LoadFromHTTPResponse loads the data from the body into the given interface.
// Closing the body is left to the caller.
func LoadFromHTTPResponse(resp *http.Response, t interface{}) (format SerializationFormat, err error) {
	return loadFromHTTP(resp.Body, resp.Header.Get(httpHeaderContentType), t)
}

func loadFromHTTP(body io.Reader, mimeType string, t interface{}) (format SerializationFormat, err error) {
	if body == nil {
		return 0, ErrMissingBody
	}

	// Read full body.
	data, err := io.ReadAll(body)
	if err != nil {
		return 0, fmt.Errorf("dsd: failed to read http body: %w", err)
	}

	// Load depending on mime type.
	if mimeType == "" {
		return 0, ErrMissingContentType
	}
	format, ok := MimeTypeToFormat["application/"+extractMimeType(mimeType)]
	if !ok {
		return 0, ErrIncompatibleFormat
	}

	return format, LoadAsFormat(data, format, t)
}

// RequestHTTPResponseFormat sets the Accept header to the given format.
func RequestHTTPResponseFormat(r *http.Request, format SerializationFormat) (mimeType string, err error) {
	// Get mime type.
	mimeType, ok := FormatToMimeType[format]
	if !ok {
		return "", ErrIncompatibleFormat
	}

	// Request response format.
	r.Header.Set("Accept", mimeType)

	return mimeType, nil
}

// DumpToHTTPRequest dumps the given data to the HTTP request using the given
// format. It also sets the Accept header to the same format.
func DumpToHTTPRequest(r *http.Request, t interface{}, format SerializationFormat) error {
	format, ok := format.ValidateSerializationFormat()
	if !ok {
		return ErrIncompatibleFormat
	}
	mimeType, err := RequestHTTPResponseFormat(r, format)
	if err != nil {
		return err
	}

	// Serialize data.
	data, err := DumpWithoutIdentifier(t, format)
	if err != nil {
		return fmt.Errorf("dsd: failed to serialize: %w", err)
	}

	// Add data to request.
	r.Header.Set(httpHeaderContentType, mimeType)
	r.Body = io.NopCloser(bytes.NewReader(data))
	r.ContentLength = int64(len(data))

	return nil
}

// DumpToHTTPResponse dumpts the given data to the HTTP response, using the
// format defined in the request's Accept header.
func DumpToHTTPResponse(w http.ResponseWriter, r *http.Request, t interface{}) error {
	// Serialize data based on accept header.
	data, mimeType, _, err := MimeDump(t, r.Header.Get("Accept"))
	if err != nil {
		return fmt.Errorf("dsd: failed to serialize: %w", err)
	}

	// Write data to response
	w.Header().Set(httpHeaderContentType, mimeType)
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("dsd: failed to write response: %w", err)
	}
	return nil
}

// MimeDump dumps the given data with the format of the first supported mime
// type found in the given accept header. Falls back to the default format.
func MimeDump(t any, accept string) (data []byte, mimeType string, format SerializationFormat, err error) {
	// Find format.
	format = FormatFromAccept(accept)
	if format == AUTO {
		format = DefaultSerializationFormat
	}

	// Get mime type.
	mimeType, ok := FormatToMimeType[format]
	if !ok {
		return nil, "", 0, ErrIncompatibleFormat
	}

	// Serialize data.
	data, err = DumpWithoutIdentifier(t, format)
	return data, mimeType, format, err
}

// FormatFromAccept returns the format for the given accept definition.
// The accept parameter matches the format of the HTTP Accept header.
// Special cases, in this order:
// - If accept is an empty string: returns default serialization format.
// - If accept contains no supported format, but a wildcard: returns default serialization format.
// - If accept contains no supported format, and no wildcard: returns AUTO format.
func FormatFromAccept(accept string) (format SerializationFormat) {
	if accept == "" {
		return DefaultSerializationFormat
	}

	var foundWildcard bool
	for _, mimeType := range strings.Split(accept, ",") {
		// Clean mime type.
		mimeType = extractMimeType(mimeType)

		// Check if mime type is supported.
		format, ok := MimeTypeToFormat["application/"+mimeType]
		if ok {
			return format
		}

		// Return default mime type as fallback if any mimetype is okay.
		if mimeType == "*" {
			foundWildcard = true
		}
	}

	if foundWildcard {
		return DefaultSerializationFormat
	}
	return AUTO
}

// extractMimeType reduces a mime type or accept header to the subtype of its
// first entry.
func extractMimeType(mimeType string) string {
	mimeType, _, _ = strings.Cut(mimeType, ",")
	mimeType, _, _ = strings.Cut(mimeType, ";")
	mimeType = strings.TrimSpace(mimeType)
	if _, subType, ok := strings.Cut(mimeType, "/"); ok {
		mimeType = subType
	}
	return strings.ToLower(mimeType)
}

// Format and MimeType mappings.
var (
	FormatToMimeType = map[SerializationFormat]string{
		JSON:    "application/json",
		CBOR:    "application/cbor",
		MsgPack: "application/msgpack",
	}
	MimeTypeToFormat = map[string]SerializationFormat{
		"application/json":    JSON,
		"application/cbor":    CBOR,
		"application/msgpack": MsgPack,
	}
)
