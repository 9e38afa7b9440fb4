//go:build !unix

package resolver

import (
	"os/exec"
)

func configureProcessGroup(_ *exec.Cmd) {}
