package api

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/shirou/gopsutil/host"

	"github.com/safing/entropool/info"
)

func registerDebugEndpoints() error {
	if err := RegisterEndpoint(Endpoint{
		Path:        "debug/stack",
		DataFunc:    getStack,
		Name:        "Get Goroutine Stack",
		Description: "Returns the current goroutine stack.",
	}); err != nil {
		return err
	}

	if err := RegisterEndpoint(Endpoint{
		Path:        "debug/stack/print",
		Method:      http.MethodPost,
		ActionFunc:  printStack,
		Name:        "Print Goroutine Stack",
		Description: "Prints the current goroutine stack to stderr.",
	}); err != nil {
		return err
	}

	if err := RegisterEndpoint(Endpoint{
		Path:        "debug/info",
		DataFunc:    debugInfo,
		Name:        "Get Debug Information",
		Description: "Returns debugging information, including the version and platform info and the current goroutine stack.",
		Parameters: []Parameter{{
			Method:      http.MethodGet,
			Field:       "stack",
			Value:       "false",
			Description: "Omit the goroutine stack.",
		}},
	}); err != nil {
		return err
	}

	return nil
}

// getStack returns the current goroutine stack.
func getStack(_ *Request) (data []byte, err error) {
	buf := &bytes.Buffer{}
	err = pprof.Lookup("goroutine").WriteTo(buf, 1)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// printStack prints the current goroutine stack to stderr.
func printStack(_ *Request) (msg string, err error) {
	_, err = fmt.Fprint(os.Stderr, "===== PRINTING STACK =====\n")
	if err == nil {
		err = pprof.Lookup("goroutine").WriteTo(os.Stderr, 1)
	}
	if err == nil {
		_, err = fmt.Fprint(os.Stderr, "===== END OF STACK =====\n")
	}
	if err != nil {
		return "", err
	}
	return "stack printed to stderr", nil
}

// debugInfo returns the debugging information for support requests.
func debugInfo(ar *Request) (data []byte, err error) {
	withStack, err := ar.QueryBool("stack", true)
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "# Debug Information\n\nGenerated at %s\n\n", time.Now().UTC().Format(time.RFC3339))

	// Version.
	fmt.Fprintf(buf, "## Version\n\n%s\n\n", info.FullVersion())

	// Platform.
	fmt.Fprintf(buf, "## Platform\n\nGo: %s %s/%s\nCPUs: %d\nGoroutines: %d\n",
		runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.NumGoroutine())
	hostInfo, err := host.InfoWithContext(ar.Ctx())
	if err == nil {
		fmt.Fprintf(buf, "Host: %s %s (%s)\n", hostInfo.Platform, hostInfo.PlatformVersion, hostInfo.KernelVersion)
	}
	buf.WriteString("\n")

	// Registered endpoints.
	spewConfig := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableMethods: true}
	buf.WriteString("## Endpoints\n\n")
	for _, ep := range ExportEndpoints() {
		fmt.Fprintf(buf, "%s %s\n", ep.Method, ep.Path)
	}
	buf.WriteString("\n## Build\n\n")
	spewConfig.Fdump(buf, info.GetInfo().Main)

	if withStack {
		buf.WriteString("\n## Goroutine Stack\n\n")
		if err := pprof.Lookup("goroutine").WriteTo(buf, 1); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}
