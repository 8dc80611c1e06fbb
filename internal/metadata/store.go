package metadata

import (
	"path"
	"strings"
	"sync"

	"github.com/ccmdi/blockkit/internal/expr"
	"github.com/ccmdi/blockkit/internal/query"
)

// Document is one markdown document and its parsed front matter.
type Document struct {
	Path        string
	FrontMatter map[string]expr.Value
}

// Title is the file name without directory or extension.
func (d *Document) Title() string {
	base := path.Base(d.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Dir is the parent directory of the document, "" for vault-root files.
func (d *Document) Dir() string {
	dir := path.Dir(d.Path)
	if dir == "." {
		return ""
	}
	return dir
}

// Tags collects the document's tags from front matter. A scalar "tags" value
// counts as a single tag; list values contribute one tag per element. Leading
// '#' characters are stripped.
func (d *Document) Tags() []string {
	v, ok := d.FrontMatter["tags"]
	if !ok {
		return nil
	}
	var tags []string
	add := func(e expr.Value) {
		s := strings.TrimPrefix(strings.TrimSpace(e.Display()), "#")
		if s != "" {
			tags = append(tags, s)
		}
	}
	if v.Kind() == expr.KindList {
		for _, e := range v.List() {
			add(e)
		}
	} else {
		add(v)
	}
	return tags
}

// QueryDoc adapts the document for query matching.
func (d *Document) QueryDoc() query.Doc {
	return query.Doc{Path: d.Path, FrontMatter: d.FrontMatter, Tags: d.Tags()}
}

// Context adapts the front matter for expression evaluation.
func (d *Document) Context() expr.MapContext {
	return expr.MapContext(d.FrontMatter)
}

// Store is the read side of the metadata collaborator the core needs.
type Store interface {
	// Document returns the document at the given vault-relative path.
	Document(path string) (*Document, bool)
	// ActivePath returns the path of the currently focused document, or "".
	ActivePath() string
	// Documents returns every known document. Order is unspecified.
	Documents() []*Document
}

// MemStore is the in-memory Store and Bus implementation. Each document
// entry is replaced wholesale on update; readers always observe a complete
// snapshot, never a partially-written document.
type MemStore struct {
	mu     sync.RWMutex
	docs   map[string]*Document
	active string
	bus    MemBus
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string]*Document)}
}

// Document implements Store.
func (s *MemStore) Document(path string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[path]
	return d, ok
}

// ActivePath implements Store.
func (s *MemStore) ActivePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Documents implements Store.
func (s *MemStore) Documents() []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out
}

// SetDocument inserts or replaces a document and publishes a MetadataChanged
// event for its path.
func (s *MemStore) SetDocument(d *Document) {
	s.mu.Lock()
	s.docs[d.Path] = d
	s.mu.Unlock()
	s.bus.publish(Event{Kind: MetadataChanged, Path: d.Path})
}

// SetFrontMatter replaces one document's front matter, creating the document
// if needed.
func (s *MemStore) SetFrontMatter(path string, fm map[string]expr.Value) {
	s.SetDocument(&Document{Path: path, FrontMatter: fm})
}

// SetActive changes the focused document and publishes ActiveViewChanged.
func (s *MemStore) SetActive(path string) {
	s.mu.Lock()
	s.active = path
	s.mu.Unlock()
	s.bus.publish(Event{Kind: ActiveViewChanged, Path: path})
}

// Subscribe implements Bus.
func (s *MemStore) Subscribe(kind EventKind, fn Handler) (unsubscribe func()) {
	return s.bus.Subscribe(kind, fn)
}
