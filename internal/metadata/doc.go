// Package metadata holds the document metadata store and its change feed.
//
// The core engine depends on two small interfaces: Store, for looking up a
// document's front matter and the currently active document, and Bus, an
// observer-style change feed with subscribe/unsubscribe semantics. A host
// application provides real implementations; MemStore is the in-memory
// implementation used by the CLI, tests, and any embedder that manages
// documents itself.
//
// Front matter is YAML delimited by "---" lines at the top of a markdown
// file. Values are normalized into expr.Value at the boundary so shape
// checks (string vs array vs JSON-string-of-array) happen exactly once.
package metadata
