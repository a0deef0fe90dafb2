package sampling

import (
	"encoding/hex"
	"net/http"

	"github.com/safing/entropool/api"
)

// Value wraps a single value in API responses.
type Value struct {
	Value  interface{} `json:"value"`
	Source string      `json:"source"`
}

func registerAPIEndpoints() error {
	sourceParam := api.Parameter{
		Method:      http.MethodGet,
		Field:       "source",
		Value:       "local",
		Description: "Use the local generator instead of the remote entropy pool.",
	}

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "random/int",
		StructFunc:  handleInt,
		Name:        "Random Integer",
		Description: "Returns a random integer in [min, max).",
		Parameters:  []api.Parameter{sourceParam},
	}); err != nil {
		return err
	}

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "random/hex",
		StructFunc:  handleHex,
		Name:        "Random Hex String",
		Description: "Returns a random lowercase hex string of the given length.",
		Parameters:  []api.Parameter{sourceParam},
	}); err != nil {
		return err
	}

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "random/bytes",
		StructFunc:  handleBytes,
		Name:        "Random Bytes",
		Description: "Returns random bytes converted from hex entropy, hex encoded. Batch mode returns ten times the length.",
		Parameters: []api.Parameter{sourceParam, {
			Method:      http.MethodGet,
			Field:       "batch",
			Value:       "true",
			Description: "Collect entropy in batch mode.",
		}},
	}); err != nil {
		return err
	}

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "random/coordinates",
		StructFunc:  handleCoordinates,
		Name:        "Random Coordinates",
		Description: "Returns random coordinates on the integer-degree grid.",
		Parameters:  []api.Parameter{sourceParam},
	}); err != nil {
		return err
	}

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "random/double",
		StructFunc:  handleDouble,
		Name:        "Random Double",
		Description: "Returns a random float in [0, 1).",
		Parameters:  []api.Parameter{sourceParam},
	}); err != nil {
		return err
	}

	return nil
}

func getEngine(ar *api.Request) (engine *Engine, source string, err error) {
	source = ar.Request.URL.Query().Get("source")
	switch source {
	case "", "remote":
		source = "remote"
		engine = DefaultEngine()
	case "local":
		engine = LocalEngine()
	default:
		return nil, "", api.BadRequest("unknown source %q", source)
	}

	if engine == nil {
		return nil, "", errNotReady
	}
	return engine, source, nil
}

func handleInt(ar *api.Request) (i interface{}, err error) {
	engine, source, err := getEngine(ar)
	if err != nil {
		return nil, err
	}

	min, err := ar.QueryInt("min", 0)
	if err != nil {
		return nil, err
	}
	max, err := ar.QueryInt("max", 0)
	if err != nil {
		return nil, err
	}

	n, err := engine.RequestRandomInt(ar.Ctx(), min, max)
	if err != nil {
		return nil, err
	}
	return &Value{Value: n, Source: source}, nil
}

func handleHex(ar *api.Request) (i interface{}, err error) {
	engine, source, err := getEngine(ar)
	if err != nil {
		return nil, err
	}

	length, err := ar.QueryInt("length", 0)
	if err != nil {
		return nil, err
	}

	s, err := engine.RequestRandomHex(ar.Ctx(), int(length))
	if err != nil {
		return nil, err
	}
	return &Value{Value: s, Source: source}, nil
}

func handleBytes(ar *api.Request) (i interface{}, err error) {
	engine, source, err := getEngine(ar)
	if err != nil {
		return nil, err
	}

	length, err := ar.QueryInt("length", 0)
	if err != nil {
		return nil, err
	}
	batch, err := ar.QueryBool("batch", false)
	if err != nil {
		return nil, err
	}

	data, err := engine.NextBytesFromHex(ar.Ctx(), int(length), batch)
	if err != nil {
		return nil, err
	}
	return &Value{Value: hex.EncodeToString(data), Source: source}, nil
}

func handleCoordinates(ar *api.Request) (i interface{}, err error) {
	engine, _, err := getEngine(ar)
	if err != nil {
		return nil, err
	}

	count, err := ar.QueryInt("count", 1)
	if err != nil {
		return nil, err
	}

	return engine.RequestCoordinates(ar.Ctx(), int(count))
}

func handleDouble(ar *api.Request) (i interface{}, err error) {
	engine, source, err := getEngine(ar)
	if err != nil {
		return nil, err
	}

	f, err := engine.NextDouble(ar.Ctx())
	if err != nil {
		return nil, err
	}
	return &Value{Value: f, Source: source}, nil
}
