// Package resolver turns a component block's raw key=value source into the
// flat argument map a widget consumes.
//
// Resolution runs in a fixed order: line parsing (with quoted and multi-line
// JSON-like values), special context variable substitution, expression
// evaluation with literal passthrough on parse failure, key aliasing, and
// reserved-key classification (enabled gate, trailing-! CSS overrides, ref).
// The watched key set and the missing-file-reference recovery flag fall out
// of the evaluation pass.
package resolver
