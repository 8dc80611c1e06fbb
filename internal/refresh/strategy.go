// Package refresh decides when a live instance recomputes its arguments and
// re-renders. It turns declared or inferred strategies into change-feed
// subscriptions and timers, suppressing refreshes whose watched metadata is
// unchanged.
package refresh

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ccmdi/blockkit/internal/resolver"
)

// Kind enumerates the closed set of refresh strategy variants.
type Kind int

const (
	// MetadataSelf fires when the instance's own document's metadata changes.
	MetadataSelf Kind = iota
	// MetadataAny fires when any document's metadata changes.
	MetadataAny
	// MetadataQuery fires when a document matching the query changes.
	MetadataQuery
	// ActiveView fires when the focused document changes; attached only for
	// instances rendered inside a side panel.
	ActiveView
	// Daily fires at the next local midnight and re-arms.
	Daily
	// Hourly fires at the top of the next hour and re-arms.
	Hourly
	// Interval fires on a fixed period.
	Interval
)

var kindNames = [...]string{
	MetadataSelf:  "metadata-self",
	MetadataAny:   "metadata-any",
	MetadataQuery: "metadata-query",
	ActiveView:    "active-view",
	Daily:         "daily",
	Hourly:        "hourly",
	Interval:      "interval",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Strategy is one tagged variant: the kind plus only that kind's parameters.
type Strategy struct {
	Kind  Kind
	Query string        // MetadataQuery only
	Every time.Duration // Interval only
}

// Key canonicalizes kind + parameters for deduplication.
func (s Strategy) Key() string {
	switch s.Kind {
	case MetadataQuery:
		return fmt.Sprintf("%s:%s", s.Kind, s.Query)
	case Interval:
		return fmt.Sprintf("%s:%d", s.Kind, s.Every.Milliseconds())
	}
	return s.Kind.String()
}

// Parse reads the string form used in component manifests:
// "metadata-self", "metadata-any", "metadata-query:<query>", "active-view",
// "daily", "hourly", "interval:<ms>".
func Parse(s string) (Strategy, error) {
	name, param, hasParam := strings.Cut(s, ":")
	switch name {
	case "metadata-self":
		return Strategy{Kind: MetadataSelf}, nil
	case "metadata-any":
		return Strategy{Kind: MetadataAny}, nil
	case "metadata-query":
		if !hasParam || param == "" {
			return Strategy{}, fmt.Errorf("refresh: metadata-query requires a query parameter")
		}
		return Strategy{Kind: MetadataQuery, Query: param}, nil
	case "active-view":
		return Strategy{Kind: ActiveView}, nil
	case "daily":
		return Strategy{Kind: Daily}, nil
	case "hourly":
		return Strategy{Kind: Hourly}, nil
	case "interval":
		if !hasParam {
			return Strategy{}, fmt.Errorf("refresh: interval requires a millisecond parameter")
		}
		ms, err := strconv.Atoi(param)
		if err != nil || ms <= 0 {
			return Strategy{}, fmt.Errorf("refresh: invalid interval %q", param)
		}
		return Strategy{Kind: Interval, Every: time.Duration(ms) * time.Millisecond}, nil
	}
	return Strategy{}, fmt.Errorf("refresh: unknown strategy %q", s)
}

// Dedupe collapses strategies with identical kind+parameters, preserving
// first-seen order.
func Dedupe(strategies []Strategy) []Strategy {
	seen := make(map[string]struct{}, len(strategies))
	out := strategies[:0:0]
	for _, s := range strategies {
		k := s.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Infer derives implicit strategies from what the arguments actually did:
// referencing metadata implies refreshing when the document's metadata
// changes, and a query argument implies refreshing when matching documents
// change.
func Infer(watched *resolver.WatchedKeys, args map[string]string) []Strategy {
	var out []Strategy
	if watched != nil && !watched.Empty() {
		out = append(out, Strategy{Kind: MetadataSelf})
	}
	if q, ok := args["query"]; ok && strings.TrimSpace(q) != "" {
		out = append(out, Strategy{Kind: MetadataQuery, Query: q})
	}
	return out
}
