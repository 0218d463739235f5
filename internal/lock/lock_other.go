//go:build !unix

package lock

import "os"

// No advisory locking here; a single instance is assumed.
func tryLock(*os.File) error { return nil }

func unlock(*os.File) error { return nil }
