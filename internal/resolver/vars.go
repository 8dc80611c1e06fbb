package resolver

import (
	"strconv"
	"strings"
	"time"

	"github.com/ccmdi/blockkit/internal/metadata"
)

// Special context variables substituted before expression evaluation.
const (
	VarSelf      = "__SELF__"
	VarDir       = "__DIR__"
	VarTitle     = "__TITLE__"
	VarRoot      = "__ROOT__"
	VarToday     = "__TODAY__"
	VarYesterday = "__YESTERDAY__"
	VarTomorrow  = "__TOMORROW__"
	VarNow       = "__NOW__"
	VarTime      = "__TIME__"
	VarTimestamp = "__TIMESTAMP__"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// specialVars computes every variable's value for one resolution pass, so
// all substitutions within a block observe the same instant.
func specialVars(doc *metadata.Document, now time.Time) map[string]string {
	return map[string]string{
		VarSelf:      doc.Path,
		VarDir:       doc.Dir(),
		VarTitle:     doc.Title(),
		VarRoot:      "/",
		VarToday:     now.Format(dateLayout),
		VarYesterday: now.AddDate(0, 0, -1).Format(dateLayout),
		VarTomorrow:  now.AddDate(0, 0, 1).Format(dateLayout),
		VarNow:       now.Format(dateLayout + " " + timeLayout),
		VarTime:      now.Format(timeLayout),
		VarTimestamp: strconv.FormatInt(now.UnixMilli(), 10),
	}
}

// substitute replaces special variables in a value. A variable standing as
// the entire value substitutes as-is; a variable embedded in a larger string
// substitutes as a quoted literal unless it already sits between quote
// characters, so evaluation treats the value as data rather than syntax.
// When quoted is false, embedded substitution is always plain; this form
// feeds the literal-passthrough fallback.
func substitute(value string, vars map[string]string, quoted bool) string {
	if v, ok := vars[value]; ok {
		return v
	}
	for name, v := range vars {
		for {
			i := strings.Index(value, name)
			if i < 0 {
				break
			}
			repl := v
			if quoted && !betweenQuotes(value, i, i+len(name)) {
				repl = `"` + v + `"`
			}
			value = value[:i] + repl + value[i+len(name):]
		}
	}
	return value
}

func betweenQuotes(s string, start, end int) bool {
	if start == 0 || end >= len(s) {
		return false
	}
	before, after := s[start-1], s[end]
	return (before == '"' || before == '\'') && (after == '"' || after == '\'')
}
