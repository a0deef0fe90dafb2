package dsd

import "errors"

// Errors.
var (
	ErrIncompatibleFormat = errors.New("dsd: format is incompatible with operation")
	ErrIsRaw              = errors.New("dsd: given data is in raw format")
	ErrNoMoreSpace        = errors.New("dsd: no more space left after reading dsd type")
	ErrUnknownFormat      = errors.New("dsd: format is unknown")
)

// SerializationFormat identifies a serialization format. Its value is the
// single ASCII byte that prefixes serialized data.
type SerializationFormat uint8

// Serialization Formats.
const (
	AUTO    SerializationFormat = 0
	RAW     SerializationFormat = 1
	CBOR    SerializationFormat = 'C'
	JSON    SerializationFormat = 'J'
	MsgPack SerializationFormat = 'M'
)

// CompressionFormat identifies a compression format. Compressed data is
// prefixed with the compression byte followed by the serialization byte.
type CompressionFormat uint8

// Compression Formats.
const (
	AutoCompress CompressionFormat = 0
	GZIP         CompressionFormat = 'Z'
)

// Format Defaults.
var (
	DefaultSerializationFormat = JSON
	DefaultCompressionFormat   = GZIP
)

var serializationNames = map[string]SerializationFormat{
	"json":    JSON,
	"cbor":    CBOR,
	"msgpack": MsgPack,
}

// ValidateSerializationFormat reports whether format can be used for
// serialization. AUTO resolves to the default serialization format.
func (format SerializationFormat) ValidateSerializationFormat() (validated SerializationFormat, ok bool) {
	switch format {
	case AUTO:
		return DefaultSerializationFormat, true
	case RAW, CBOR, JSON, MsgPack:
		return format, true
	}
	return 0, false
}

// ValidateCompressionFormat reports whether format can be used for
// compression. AutoCompress resolves to the default compression format.
func (format CompressionFormat) ValidateCompressionFormat() (validated CompressionFormat, ok bool) {
	switch format {
	case AutoCompress:
		return DefaultCompressionFormat, true
	case GZIP:
		return format, true
	}
	return 0, false
}

// ParseSerializationFormat returns the serialization format with the given
// configuration name.
func ParseSerializationFormat(name string) (SerializationFormat, bool) {
	format, ok := serializationNames[name]
	return format, ok
}
