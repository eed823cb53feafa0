// Package guard flips the process into test mode when imported, so code that
// checks app.InTestMode skips network side effects.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SALESDESK_TEST_MODE") == "" {
			_ = os.Setenv("SALESDESK_TEST_MODE", "1")
		}
	})
}
