package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/safing/entropool/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxDiagnosticsLength limits how much of stderr is kept in errors.
const maxDiagnosticsLength = 4096

// ProcessEngine runs every computation in a separate process. The job
// parameters are passed as flags, the entropy is written to stdin as hex and
// the result is read from stdout as a JSON object.
type ProcessEngine struct {
	Path string
	Args []string
}

// NewProcessEngine returns an engine that runs the executable at path.
func NewProcessEngine(path string, args ...string) *ProcessEngine {
	return &ProcessEngine{
		Path: path,
		Args: args,
	}
}

// Compute implements Engine.
func (pe *ProcessEngine) Compute(ctx context.Context, in *Input) (Result, error) {
	args := append([]string{}, pe.Args...)
	args = append(args,
		"-address", in.Address,
		"-latitude", strconv.FormatFloat(in.Latitude, 'f', -1, 64),
		"-longitude", strconv.FormatFloat(in.Longitude, 'f', -1, 64),
		"-radius", strconv.FormatFloat(in.Radius, 'f', -1, 64),
		"-filter", strconv.Itoa(in.Filter),
	)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, pe.Path, args...) //nolint:gosec
	cmd.Stdin = strings.NewReader(in.Entropy)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second
	isolateProcess(cmd)

	started := time.Now()
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%w: %w", ErrComputationFailed, ctx.Err())
		case errors.As(err, &exitErr):
			return nil, fmt.Errorf("%w: %s: %s", ErrComputationFailed, exitErr, diagnostics(&stderr))
		default:
			return nil, fmt.Errorf("%w: failed to run engine: %w", ErrComputationFailed, err)
		}
	}
	log.Tracef("dispatch: engine finished in %s", time.Since(started))

	result := make(Result)
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("%w: invalid engine output: %w", ErrComputationFailed, err)
	}
	return result, nil
}

func diagnostics(stderr *bytes.Buffer) string {
	s := strings.TrimSpace(stderr.String())
	if len(s) > maxDiagnosticsLength {
		s = s[len(s)-maxDiagnosticsLength:]
	}
	if s == "" {
		return "no diagnostics"
	}
	return s
}
