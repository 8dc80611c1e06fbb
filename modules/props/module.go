// Package props renders a table of front matter properties for the
// documents matching a query.
package props

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/ccmdi/blockkit/internal/handlers"
	"github.com/ccmdi/blockkit/internal/metadata"
	"github.com/ccmdi/blockkit/internal/query"
)

//go:embed manifest.hcl
var manifestHCL []byte

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Manifest returns the embedded component manifest.
func (m *Module) Manifest() []byte { return manifestHCL }

// Register registers the handler with the engine.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register("RenderProps", RenderProps)
}

// RenderProps lists the requested front matter columns of every matching
// document, one line per document.
func RenderProps(_ context.Context, rc *handlers.RenderContext) (string, error) {
	q := rc.Args["query"].AsString()
	limitF, _ := rc.Args["limit"].AsBigFloat().Float64()
	limit := int(limitF)

	var columns []string
	for _, v := range rc.Args["columns"].AsValueSlice() {
		columns = append(columns, v.AsString())
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("props: at least one column is required")
	}

	docs := matchDocs(rc.Store, q)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	var b strings.Builder
	for _, doc := range docs {
		cells := make([]string, 0, len(columns)+1)
		cells = append(cells, doc.Path)
		mctx := doc.Context()
		for _, col := range columns {
			cells = append(cells, mctx.Lookup([]string{col}).Display())
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func matchDocs(store metadata.Store, q string) []*metadata.Document {
	var out []*metadata.Document
	for _, doc := range store.Documents() {
		if q == "" || query.MatchesQuery(q, doc.QueryDoc()) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
