package dsd

// dynamic structured data
// check here for some benchmarks: https://github.com/alecthomas/go_serialization_benchmarks

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Load loads an dsd structured data blob into the given interface.
func Load(data []byte, t interface{}) (format SerializationFormat, err error) {
	format, read, err := loadFormat(data)
	if err != nil {
		return 0, err
	}

	if compression := CompressionFormat(format); compression == GZIP {
		return DecompressAndLoad(data[read:], compression, t)
	}

	return format, LoadAsFormat(data[read:], format, t)
}

// LoadAsFormat loads a data blob into the interface using the specified format.
func LoadAsFormat(data []byte, format SerializationFormat, t interface{}) (err error) {
	switch format {
	case RAW:
		return ErrIsRaw
	case JSON:
		err = json.Unmarshal(data, t)
		if err != nil {
			return fmt.Errorf("dsd: failed to unpack json: %w, data: %s", err, string(data))
		}
		return nil
	case CBOR:
		err = cbor.Unmarshal(data, t)
		if err != nil {
			return fmt.Errorf("dsd: failed to unpack cbor: %w, data: %q", err, data)
		}
		return nil
	case MsgPack:
		err = msgpack.Unmarshal(data, t)
		if err != nil {
			return fmt.Errorf("dsd: failed to unpack msgpack: %w, data: %q", err, data)
		}
		return nil
	default:
		return ErrIncompatibleFormat
	}
}

func loadFormat(data []byte) (format SerializationFormat, read int, err error) {
	// Format identifiers are single ASCII bytes.
	switch {
	case len(data) == 0:
		return 0, 0, ErrNoMoreSpace
	case data[0] >= 128:
		return 0, 0, ErrUnknownFormat
	case len(data) == 1:
		return 0, 0, ErrNoMoreSpace
	}
	return SerializationFormat(data[0]), 1, nil
}

// Dump stores the interface as a dsd formatted data structure.
func Dump(t interface{}, format SerializationFormat) ([]byte, error) {
	data, err := DumpWithoutIdentifier(t, format)
	if err != nil {
		return nil, err
	}

	f, _ := format.ValidateSerializationFormat()
	return append([]byte{byte(f)}, data...), nil
}

// DumpWithoutIdentifier stores the interface as a data structure, without format identifier.
func DumpWithoutIdentifier(t interface{}, format SerializationFormat) ([]byte, error) {
	format, ok := format.ValidateSerializationFormat()
	if !ok {
		return nil, ErrIncompatibleFormat
	}

	var data []byte
	var err error
	switch format {
	case JSON:
		data, err = json.Marshal(t)
		if err != nil {
			return nil, err
		}
	case CBOR:
		data, err = cbor.Marshal(t)
		if err != nil {
			return nil, err
		}
	case MsgPack:
		data, err = msgpack.Marshal(t)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrIncompatibleFormat
	}

	return data, nil
}

// DumpAndCompress stores the interface as a dsd formatted data structure and compresses the resulting data.
func DumpAndCompress(t interface{}, format SerializationFormat, compression CompressionFormat) ([]byte, error) {
	data, err := Dump(t, format)
	if err != nil {
		return nil, err
	}

	compression, ok := compression.ValidateCompressionFormat()
	if !ok {
		return nil, ErrIncompatibleFormat
	}

	buf := bytes.NewBuffer(nil)
	buf.WriteByte(byte(compression))

	switch compression {
	case GZIP:
		gzipWriter, err := gzip.NewWriterLevel(buf, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := gzipWriter.Write(data); err != nil {
			return nil, err
		}
		// flush and write gzip footer
		if err := gzipWriter.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, ErrIncompatibleFormat
	}

	return buf.Bytes(), nil
}

// DecompressAndLoad decompresses the data using the specified compression format and then loads the resulting data blob into the interface.
func DecompressAndLoad(data []byte, compression CompressionFormat, t interface{}) (format SerializationFormat, err error) {
	var decompressed []byte

	switch compression {
	case GZIP:
		gzipReader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return 0, err
		}
		decompressed, err = io.ReadAll(gzipReader)
		if err != nil {
			return 0, err
		}
		// verify gzip footer
		if err := gzipReader.Close(); err != nil {
			return 0, err
		}
	default:
		return 0, ErrIncompatibleFormat
	}

	format, read, err := loadFormat(decompressed)
	if err != nil {
		return 0, err
	}
	return format, LoadAsFormat(decompressed[read:], format, t)
}
