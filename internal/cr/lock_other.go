//go:build !unix

package cr

import "os"

// Advisory file locks are unix-only; the in-process mutex still applies.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
