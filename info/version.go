package info

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	semver "github.com/hashicorp/go-version"
)

const devVersion = "dev build"

// Build metadata. buildSource and buildTime may be overridden via -ldflags.
var (
	name        string
	version     = devVersion
	license     = "[license unknown]"
	buildSource = "[source unknown]"
	buildTime   = "[build time unknown]"
)

// Info holds the programs meta information.
type Info struct {
	Name    string
	Version string
	License string

	Source    string
	BuildTime string

	Commit     string
	CommitTime string
	Dirty      bool

	debug.BuildInfo
}

// readBuildInfo reads the embedded build info and its vcs settings once.
var readBuildInfo = sync.OnceValues(func() (*debug.BuildInfo, map[string]string) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		bi = &debug.BuildInfo{}
	}
	settings := make(map[string]string, len(bi.Settings))
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}
	return bi, settings
})

// Set sets the program meta information. It must be called from main
// before the modules are started.
func Set(setName string, setVersion string, setLicenseName string) {
	name = setName
	license = setLicenseName
	if setVersion != "" {
		version = setVersion
	}
}

// GetInfo returns all the meta information about the program.
func GetInfo() *Info {
	bi, vcs := readBuildInfo()

	orUnknown := func(v, what string) string {
		if v == "" {
			return "[" + what + " unknown]"
		}
		return v
	}

	return &Info{
		Name:       name,
		Version:    version,
		License:    license,
		Source:     buildSource,
		BuildTime:  buildTime,
		Commit:     orUnknown(vcs["vcs.revision"], "commit"),
		CommitTime: orUnknown(vcs["vcs.time"], "commit time"),
		Dirty:      vcs["vcs.modified"] == "true",
		BuildInfo:  *bi,
	}
}

// Version returns the short version string. Builds from a modified
// working tree are marked with a trailing asterisk.
func Version() string {
	if GetInfo().Dirty {
		return version + "*"
	}
	return version
}

// FullVersion returns a multi-line description of the version, build and
// commit.
func FullVersion() string {
	meta := GetInfo()
	b := new(strings.Builder)

	fmt.Fprintf(b, "%s %s\n", meta.Name, Version())
	if v, err := SemVer(); err == nil && v.Prerelease() != "" {
		fmt.Fprintf(b, "pre-release %s\n", v.Prerelease())
	}

	fmt.Fprintf(b, "\nbuilt with %s (%s) %s/%s\n", runtime.Version(), runtime.Compiler, runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(b, "  at %s\n", meta.BuildTime)

	fmt.Fprintf(b, "\ncommit %s\n", meta.Commit)
	fmt.Fprintf(b, "  at %s\n", meta.CommitTime)
	fmt.Fprintf(b, "  from %s\n", meta.Source)

	fmt.Fprintf(b, "\nLicensed under the %s license.", meta.License)
	return b.String()
}

// SemVer returns the parsed version. Dev builds have no semantic version.
func SemVer() (*semver.Version, error) {
	return semver.NewSemver(version)
}

// CheckVersion checks that Set was called with a valid version. Test
// binaries and dev builds are always accepted.
func CheckVersion() error {
	if isTestBinary() || (name != "" && version == devVersion) {
		return nil
	}
	if name == "" || license == "[license unknown]" {
		return errors.New("must call Set() before calling CheckVersion()")
	}
	if _, err := SemVer(); err != nil {
		return fmt.Errorf("invalid version %q: %w", version, err)
	}
	return nil
}

func isTestBinary() bool {
	return strings.HasSuffix(os.Args[0], ".test") || strings.HasSuffix(os.Args[0], ".test.exe")
}
