package projectpath

import (
	"path/filepath"
	"runtime"
)

var (
	_, b, _, _ = runtime.Caller(0)

	// Root of the repository, usable no matter the working directory
	Root = filepath.Join(filepath.Dir(b), "../..")
)
