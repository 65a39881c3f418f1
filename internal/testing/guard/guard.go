// Package guard forces test mode on for packages that import it, so test
// binaries never start real servers or workers.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CONSOLE_TEST_MODE") == "" {
			_ = os.Setenv("CONSOLE_TEST_MODE", "1")
		}
	})
}
