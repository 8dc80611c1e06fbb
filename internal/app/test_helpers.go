package app

import (
	"os"
	"testing"

	"github.com/ccmdi/blockkit/internal/handlers"
	"github.com/ccmdi/blockkit/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing, logging at
// debug level into a capture buffer.
func SetupAppTest(t *testing.T, cfg Config, modules ...handlers.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	validated, err := NewConfig(cfg)
	if err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	testApp, err := NewApp(logBuffer, validated, modules...)
	if err != nil {
		t.Fatalf("app setup failed: %v", err)
	}

	t.Cleanup(func() {
		testApp.Close()
		if os.Getenv("BLOCKKIT_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
