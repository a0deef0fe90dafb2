package api

func registerMetaEndpoints() error {
	if err := RegisterEndpoint(Endpoint{
		Path:        "endpoints",
		StructFunc:  listEndpoints,
		Name:        "Export API Endpoints",
		Description: "Returns a list of all registered endpoints and their metadata.",
	}); err != nil {
		return err
	}

	if err := RegisterEndpoint(Endpoint{
		Path:        "ping",
		ActionFunc:  ping,
		Name:        "Ping",
		Description: "Pong.",
	}); err != nil {
		return err
	}

	return nil
}

func listEndpoints(_ *Request) (i interface{}, err error) {
	return ExportEndpoints(), nil
}

func ping(_ *Request) (msg string, err error) {
	return "Pong.", nil
}
