package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/ccmdi/blockkit/internal/expr"
	"github.com/ccmdi/blockkit/internal/metadata"
)

// mockedResolver pins the clock to 2026-01-12 12:30:45 local time.
func mockedResolver() *Resolver {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 12, 12, 30, 45, 0, time.Local))
	return New(mock)
}

func testDoc() *metadata.Document {
	return &metadata.Document{
		Path: "projects/plan.md",
		FrontMatter: map[string]expr.Value{
			"status":   expr.StringVal("open"),
			"priority": expr.NumberVal(2),
		},
	}
}

func resolve(t *testing.T, source string) *Resolved {
	t.Helper()
	return mockedResolver().Resolve(context.Background(), source, testDoc(), nil)
}

func TestResolve_PlainAndQuotedValues(t *testing.T) {
	res := resolve(t, `
title = Hello world
quoted = "  spaced  out  "
single = 'it\'s fine'
path = notes/archive/2024.md
url = https://example.com/x?y=1
`)
	require.Equal(t, "Hello world", res.Args["title"])
	require.Equal(t, "  spaced  out  ", res.Args["quoted"])
	require.Equal(t, "it's fine", res.Args["single"])
	require.Equal(t, "notes/archive/2024.md", res.Args["path"], "paths pass through on parse failure")
	require.Equal(t, "https://example.com/x?y=1", res.Args["url"])
}

func TestResolve_CommentsAndInvalidKeysDropped(t *testing.T) {
	res := resolve(t, `
# a comment
// another comment

ok = 1
bad key = 2
=nokey
`)
	require.Len(t, res.Args, 1)
	require.Equal(t, "1", res.Args["ok"])
}

func TestResolve_MultiLineJSONValue(t *testing.T) {
	res := resolve(t, `
columns = [
  {"name": "status", "width": 8},
  {"name": "due"}
]
after = 5
`)
	require.Contains(t, res.Args["columns"], `"name": "status"`)
	require.Contains(t, res.Args["columns"], `{"name": "due"}`)
	require.Equal(t, "5", res.Args["after"])
}

func TestResolve_ExpressionValues(t *testing.T) {
	res := resolve(t, `
label = if(fm.status == "open", "OPEN", "CLOSED")
next = fm.priority + 1
flag = fm.priority > 1 && true
`)
	require.Equal(t, "OPEN", res.Args["label"])
	require.Equal(t, "3", res.Args["next"])
	require.Equal(t, "true", res.Args["flag"])
	require.ElementsMatch(t, []string{"status", "priority"}, res.Watched.Keys())
}

func TestResolve_SpecialVariables(t *testing.T) {
	res := resolve(t, `
self = __SELF__
dir = __DIR__
title = __TITLE__
root = __ROOT__
time = __TIME__
now = __NOW__
stamp = __TIMESTAMP__
`)
	require.Equal(t, "projects/plan.md", res.Args["self"])
	require.Equal(t, "projects", res.Args["dir"])
	require.Equal(t, "plan", res.Args["title"])
	require.Equal(t, "/", res.Args["root"])
	require.Equal(t, "12:30:45", res.Args["time"])
	require.Equal(t, "2026-01-12 12:30:45", res.Args["now"])
	require.Regexp(t, `^\d{13}$`, res.Args["stamp"])
}

// A date-shaped variable used bare in an expression degrades to arithmetic.
// This is long-standing documented behavior, not a parser defect.
func TestResolve_UnquotedDateBecomesArithmetic(t *testing.T) {
	res := resolve(t, "value=__TODAY__\n")
	require.Equal(t, "2013", res.Args["value"])
}

func TestResolve_QuotedDateRoundTrips(t *testing.T) {
	res := resolve(t, `match = if("__TODAY__" == "2026-01-12", true, false)`+"\n")
	require.Equal(t, "true", res.Args["match"])
}

func TestResolve_EmbeddedVariableQuotedAutomatically(t *testing.T) {
	res := resolve(t, `check = __TODAY__ == "2026-01-12"`+"\n")
	require.Equal(t, "true", res.Args["check"])
}

func TestResolve_EnabledGate(t *testing.T) {
	require.True(t, resolve(t, "x = 1\n").Enabled, "enabled defaults to true")
	require.False(t, resolve(t, "enabled = false\n").Enabled)
	require.False(t, resolve(t, "enabled = 0\n").Enabled)
	require.True(t, resolve(t, "enabled = yes\n").Enabled)
	require.False(t, resolve(t, `enabled = fm.status == "closed"`+"\n").Enabled)
}

func TestResolve_CSSOverridesAndRef(t *testing.T) {
	res := resolve(t, `
background! = #223344
font-size! = 14px
ref = block-7
plain = x
`)
	require.Equal(t, "#223344", res.CSSOverrides["background"])
	require.Equal(t, "14px", res.CSSOverrides["font-size"])
	require.Equal(t, "block-7", res.Ref)
	require.NotContains(t, res.Args, "background")
	require.NotContains(t, res.Args, "ref")
	require.Equal(t, "x", res.Args["plain"])
}

func TestResolve_Aliases(t *testing.T) {
	aliases := map[string]string{"folder": "query"}
	r := mockedResolver()

	res := r.Resolve(context.Background(), "folder = projects\n", testDoc(), aliases)
	require.Equal(t, "projects", res.Args["query"])
	require.NotContains(t, res.Args, "folder")

	// An explicit key wins over its alias regardless of line order.
	res = r.Resolve(context.Background(), "query = explicit\nfolder = aliased\n", testDoc(), aliases)
	require.Equal(t, "explicit", res.Args["query"])
	res = r.Resolve(context.Background(), "folder = aliased\nquery = explicit\n", testDoc(), aliases)
	require.Equal(t, "explicit", res.Args["query"])

	// An alias name with the override suffix stays a CSS override.
	res = r.Resolve(context.Background(), "folder! = red\n", testDoc(), aliases)
	require.Equal(t, "red", res.CSSOverrides["folder"])
	require.NotContains(t, res.Args, "query")
}

func TestResolve_RecoveryFlag(t *testing.T) {
	res := resolve(t, "v = file.todo_count\n")
	require.True(t, res.RecoveryNeeded)
	require.Equal(t, []string{"todo_count"}, res.Watched.Keys())

	res = resolve(t, "v = file.status\n")
	require.False(t, res.RecoveryNeeded, "present file references do not flag recovery")

	res = resolve(t, "v = fm.todo_count\n")
	require.False(t, res.RecoveryNeeded, "fm misses never flag recovery")
}

func TestResolve_WatchedKeysDeduplicated(t *testing.T) {
	res := resolve(t, `
a = fm.status
b = fm.status == "open"
c = file.status
`)
	accesses := res.Watched.Accesses()
	require.Len(t, accesses, 2, "fm.status deduplicated; file.status tracked separately")
	require.Equal(t, []string{"status"}, res.Watched.Keys())
}

func TestResolve_DeterministicAgainstSnapshot(t *testing.T) {
	r := mockedResolver()
	doc := testDoc()
	first := r.Resolve(context.Background(), "v = fm.priority * 10\n", doc, nil)
	second := r.Resolve(context.Background(), "v = fm.priority * 10\n", doc, nil)
	require.Equal(t, first.Args, second.Args)
}

func TestEval_SingleExpression(t *testing.T) {
	r := mockedResolver()
	doc := testDoc()

	v, err := r.Eval(`status == "open" && priority * 2`, doc)
	require.NoError(t, err)
	require.Equal(t, "4", v.Display())

	v, err = r.Eval(`__TITLE__ + "!"`, doc)
	require.NoError(t, err)
	require.Equal(t, "plan!", v.Display())

	_, err = r.Eval(`1 +`, doc)
	require.Error(t, err, "malformed expressions surface instead of passing through")
}
