package app

import (
	"os"
	"sync"
	"sync/atomic"
)

const testModeEnv = "MERIDIAN_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	switch os.Getenv(testModeEnv) {
	case "1", "true":
		testModeFlag.Store(true)
	default:
		testModeFlag.Store(false)
	}
}

// InTestMode reports whether the binaries should skip runtime side effects
// such as opening connections and binding ports. CI sets MERIDIAN_TEST_MODE
// when it only needs the binaries to come up and exit.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode re-reads the flag after the environment changes.
func RefreshTestMode() {
	detectTestMode()
}
