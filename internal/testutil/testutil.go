// Package testutil carries small helpers shared by the test suites.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteVault materializes a temporary vault from a map of relative paths
// to front matter YAML (without delimiters) and returns its root.
func WriteVault(t *testing.T, docs map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, fm := range docs {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating vault dir: %v", err)
		}
		content := "---\n" + strings.TrimSpace(fm) + "\n---\n\nbody\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing vault doc: %v", err)
		}
	}
	return root
}
