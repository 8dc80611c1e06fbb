package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ccmdi/blockkit/internal/ctxlog"
	"github.com/ccmdi/blockkit/internal/expr"
	"github.com/ccmdi/blockkit/internal/fsutil"
)

// LoadDir walks a vault directory, parses front matter from every .md file,
// and returns a populated MemStore. Documents are keyed by their path
// relative to the vault root, with forward slashes.
func LoadDir(ctx context.Context, root string) (*MemStore, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading vault documents.", "path", root)

	paths, err := fsutil.FindFilesByExtension(root, ".md")
	if err != nil {
		return nil, fmt.Errorf("failed to walk vault directory %s: %w", root, err)
	}
	if len(paths) == 0 {
		logger.Warn("No .md files found in vault path", "path", root)
	}

	store := NewMemStore()
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil, err
		}
		rel = filepath.ToSlash(rel)

		fm, err := ParseFrontMatter(raw)
		if err != nil {
			// A malformed front matter block makes the document unusable
			// for queries but must not sink the whole vault.
			logger.Warn("Skipping unparseable front matter", "file", rel, "error", err)
			fm = nil
		}
		store.SetDocument(&Document{Path: rel, FrontMatter: fm})
	}

	logger.Info("Vault loaded.", "documents", len(paths))
	return store, nil
}

// ParseFrontMatter extracts the YAML front matter block from raw markdown.
// A document without a front matter block yields a nil map and no error.
func ParseFrontMatter(raw []byte) (map[string]expr.Value, error) {
	body := strings.ReplaceAll(string(raw), "\r\n", "\n")
	if !strings.HasPrefix(body, "---\n") && body != "---" {
		return nil, nil
	}
	rest := strings.TrimPrefix(body, "---\n")
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, fmt.Errorf("unterminated front matter block")
	}
	block := rest[:end]

	var decoded map[string]any
	if err := yaml.Unmarshal([]byte(block), &decoded); err != nil {
		return nil, fmt.Errorf("invalid front matter yaml: %w", err)
	}

	fm := make(map[string]expr.Value, len(decoded))
	for k, v := range decoded {
		fm[k] = expr.FromAny(v)
	}
	return fm, nil
}
