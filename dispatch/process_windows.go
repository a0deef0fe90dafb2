package dispatch

import "os/exec"

func isolateProcess(_ *exec.Cmd) {}
