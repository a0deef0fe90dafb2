package api

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/safing/entropool/config"
)

func registerConfigEndpoints() error {
	RegisterErrorStatus(config.ErrInvalidData, http.StatusBadRequest)
	RegisterErrorStatus(config.ErrUnknownOption, http.StatusNotFound)
	RegisterErrorStatus(config.ErrUnsupportedType, http.StatusBadRequest)

	if err := RegisterEndpoint(Endpoint{
		Path:        "config/options",
		StructFunc:  listConfig,
		Name:        "Export Configuration Options",
		Description: "Returns a list of all registered configuration options and their metadata.",
	}); err != nil {
		return err
	}

	if err := RegisterEndpoint(Endpoint{
		Path:        "config/options/{key:.+}",
		Method:      http.MethodPut,
		ActionFunc:  setConfig,
		Name:        "Set Configuration Option",
		Description: `Sets the option to the "value" of the JSON body. A null value resets the option to its default.`,
	}); err != nil {
		return err
	}

	return nil
}

func listConfig(_ *Request) (i interface{}, err error) {
	return config.ExportOptions()
}

func setConfig(ar *Request) (msg string, err error) {
	key := ar.URLVars["key"]
	if !gjson.ValidBytes(ar.InputData) {
		return "", BadRequest("request body is not valid JSON")
	}
	value := gjson.GetBytes(ar.InputData, "value")
	if !value.Exists() {
		return "", BadRequest(`request body is missing "value"`)
	}

	if err := config.SetConfigOption(key, value.Value()); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s updated", key), nil
}
