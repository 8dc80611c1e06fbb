package expr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testContext() MapContext {
	return MapContext{
		"status":   StringVal("Done"),
		"priority": NumberVal(3),
		"count":    StringVal("5"),
		"done":     BoolVal(false),
		"tags":     ListVal([]Value{StringVal("work"), StringVal("urgent")}),
		"meta": ObjectVal(map[string]Value{
			"owner": StringVal("sam"),
		}),
		"empty": NullVal(),
	}
}

func evalString(t *testing.T, input string) Value {
	t.Helper()
	res, err := EvaluateString(input, testContext())
	require.NoError(t, err, "input: %s", input)
	return res.Value
}

func TestEvaluate_Arithmetic(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2", "3"},
		{"10 - 4", "6"},
		{"3 * 4", "12"},
		{"10 / 4", "2.5"},
		{"5 / 0", "Infinity"},
		{"-5 / 0", "-Infinity"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"-3 + 1", "-2"},
		{"2026 - 01 - 12", "2013"},
		{"0.1 * 10", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, evalString(t, tt.input).Display())
		})
	}
}

func TestEvaluate_StringConcat(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"a" + "b"`, "ab"},
		{`"n=" + 5`, "n=5"},
		{`5 + "5"`, "10"},   // a genuine number coerces its counterpart
		{`"5" + "5"`, "55"}, // two strings concatenate even when numeric-looking
		{`5 + "5x"`, "55x"}, // right operand is not numeric
		{`fm.status + "!"`, "Done!"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, evalString(t, tt.input).Display())
		})
	}
}

func TestEvaluate_Equality(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`"5" == 5`, true},
		{`"Hello" == "hello"`, true},
		{`"Hello" != "hello"`, false},
		{`fm.count == 5`, true},
		{`fm.status == "done"`, true},
		{`fm.missing == fm.alsomissing`, true},
		{`fm.missing == 0`, false},
		{`fm.missing == ""`, false},
		{`fm.missing == false`, false},
		{`fm.empty == fm.missing`, true},
		{`1 > 2 == false`, true}, // equality binds looser than relational
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, evalString(t, tt.input).Truthy())
		})
	}
}

func TestEvaluate_Relational(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"3 > 2", true},
		{"2 >= 2", true},
		{"2 < 2", false},
		{`fm.priority >= 3`, true},
		{`"10" > "9"`, true}, // numeric-aware
		{`"apple" < "Banana"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, evalString(t, tt.input).Truthy())
		})
	}
}

func TestEvaluate_LogicalReturnsOperand(t *testing.T) {
	require.Equal(t, "fallback", evalString(t, `fm.missing || "fallback"`).Display())
	require.Equal(t, "Done", evalString(t, `fm.status || "fallback"`).Display())
	require.Equal(t, "yes", evalString(t, `fm.status && "yes"`).Display())

	// A falsy left operand propagates through &&.
	v := evalString(t, `fm.done && "yes"`)
	require.Equal(t, KindBool, v.Kind())
	require.False(t, v.Truthy())
}

func TestEvaluate_Truthiness(t *testing.T) {
	falsy := []string{`false`, `0`, `""`, `"false"`, `"0"`, `"null"`, `"undefined"`, `null`, `undefined`, `fm.missing`}
	for _, in := range falsy {
		require.False(t, evalString(t, in).Truthy(), "expected falsy: %s", in)
	}
	truthy := []string{`true`, `1`, `"no"`, `fm.tags`, `fm.meta`, `-1`}
	for _, in := range truthy {
		require.True(t, evalString(t, in).Truthy(), "expected truthy: %s", in)
	}
}

func TestEvaluate_Conditional(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`if(true, 10, 5) + 1`, "11"},
		{`if(false, 10, 5)`, "5"},
		{`if(fm.status == "done", "yes", "no")`, "yes"},
		{`if(fm.missing, "yes", "no")`, "no"},
		{`if(fm.status)`, "true"},
		{`if(fm.missing)`, "false"},
		{`if(fm.status, "present")`, "present"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, evalString(t, tt.input).Display())
		})
	}

	// Two-argument form with a falsy condition returns the condition value.
	v := evalString(t, `if(fm.done, "present")`)
	require.Equal(t, KindBool, v.Kind())
	require.False(t, v.Truthy())
}

func TestEvaluate_Contains(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`contains("Hello World", "world")`, true},
		{`contains("Hello", "xyz")`, false},
		{`contains(fm.tags, "urgent")`, true},
		{`contains(fm.tags, "URGENT")`, true},
		{`contains(fm.tags, "home")`, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, evalString(t, tt.input).Truthy())
		})
	}
}

func TestEvaluate_PropertyAccess(t *testing.T) {
	require.Equal(t, "sam", evalString(t, `fm.meta.owner`).Display())
	require.True(t, evalString(t, `fm.meta.owner == "Sam"`).Truthy())

	// Missing intermediates short-circuit to missing, never an error.
	require.True(t, evalString(t, `fm.meta.nothing.deeper`).IsMissing())
	require.True(t, evalString(t, `fm.gone.a.b.c`).IsMissing())

	// file. resolves against the same metadata object.
	require.Equal(t, "Done", evalString(t, `file.status`).Display())
}

func TestEvaluate_RecordsAccesses(t *testing.T) {
	res, err := EvaluateString(`fm.status == "done" && file.priority > 1`, testContext())
	require.NoError(t, err)
	require.Len(t, res.Accesses, 2)
	require.Equal(t, "fm", res.Accesses[0].Root)
	require.Equal(t, "status", res.Accesses[0].Key())
	require.Equal(t, "file", res.Accesses[1].Root)
	require.Equal(t, "priority", res.Accesses[1].Key())
}

func TestEvaluate_ShortCircuitSkipsAccessRecording(t *testing.T) {
	res, err := EvaluateString(`fm.missing && fm.status`, testContext())
	require.NoError(t, err)
	require.Len(t, res.Accesses, 1, "right operand of && must not be evaluated")
}

func TestEvaluate_Idempotent(t *testing.T) {
	ctx := testContext()
	first, err := EvaluateString(`fm.priority * 2 + 1`, ctx)
	require.NoError(t, err)
	second, err := EvaluateString(`fm.priority * 2 + 1`, ctx)
	require.NoError(t, err)
	require.Equal(t, first.Value, second.Value)
	require.Equal(t, "7", second.Value.Display())
}
