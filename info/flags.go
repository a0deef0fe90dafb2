package info

import (
	"flag"
	"fmt"

	"github.com/safing/entropool/modules"
)

var showVersion bool

func init() {
	flag.BoolVar(&showVersion, "version", false, "show version and exit")

	modules.Register("info", func() error {
		if err := CheckVersion(); err != nil {
			return err
		}
		if showVersion {
			fmt.Println(FullVersion())
			return modules.ErrCleanExit
		}
		return nil
	}, nil, nil)
}
