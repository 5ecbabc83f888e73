package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		cursor   int
		language string
		want     []string
	}{
		{"python def header", "def add(a, b", 12, "python", []string{"):"}},
		{"python if header", "if x > 1", 8, "python", []string{":"}},
		{"python class header", "class Foo", 9, "python", []string{":"}},
		{"python method chain", "items.", 6, "python", []string{"append()", "extend()", "insert()"}},
		{"python import", "import ", 7, "python", []string{"os", "sys", "json"}},
		{"python print args", "print(", 6, "python", []string{`"Hello, World!"`, `f"Value: {variable}"`, "variable"}},
		{"python len args", "n = len(", 8, "python", []string{"list_name", "string_name", "dict_name"}},
		{"python other call", "foo(", 4, "python", []string{}},
		{"python default", "x", 1, "python", []string{"print()", "len()", "str()"}},
		{"language normalised", "x", 1, "  PYTHON ", []string{"print()", "len()", "str()"}},
		{"js function header", "function add(a, b", 17, "javascript", []string{") {"}},
		{"js arrow", "const f = (x)", 13, "typescript", []string{"=> {"}},
		{"js control", "while (ok)", 10, "javascript", []string{" {"}},
		{"js array", "list.", 5, "javascript", []string{"map()", "filter()", "reduce()"}},
		{"js require", "require(", 8, "javascript", []string{"react", "lodash", "axios"}},
		{"js console", "console.l", 9, "javascript", []string{"log()", "error()", "warn()"}},
		{"js default", "x", 1, "javascript", []string{"console.log()", "const ", "let "}},
		{"generic dot", "vec.", 4, "rust", []string{"length", "size", "count"}},
		{"generic if", "if x", 4, "go", []string{"("}},
		{"generic for", "for i", 5, "c", []string{"("}},
		{"generic default", "x", 1, "", []string{"if", "for", "while"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Suggest(tc.code, tc.cursor, tc.language)
			assert.Equal(t, tc.want, got)
			assert.LessOrEqual(t, len(got), 3)
		})
	}
}

func TestSuggestUsesOnlyTextBeforeCursor(t *testing.T) {
	code := "def f(x\nprint(1)"
	assert.Equal(t, []string{"):"}, Suggest(code, 7, "python"))
	assert.Equal(t, []string{`"Hello, World!"`, `f"Value: {variable}"`, "variable"}, Suggest(code, 14, "python"))
}

func TestSuggestClampsCursor(t *testing.T) {
	assert.Equal(t, []string{"):"}, Suggest("def f(", 1000, "python"))
	assert.Equal(t, []string{"print()", "len()", "str()"}, Suggest("def f(", -5, "python"))
}

func TestSuggestCountsRunesNotBytes(t *testing.T) {
	// "é" is two bytes; cursor 2 lands after "é.", not mid-rune.
	assert.Equal(t, []string{"length", "size", "count"}, Suggest("é.x", 2, "rust"))
}

func TestInDefinition(t *testing.T) {
	assert.True(t, inDefinition("def f():\n    x = 1\n    "))
	assert.True(t, inDefinition("class A:\n\tpass\n\t"))
	assert.False(t, inDefinition("def f():\n    pass\ny = 2\n"))
	assert.False(t, inDefinition(""))
}

func TestDedupePreservesOrder(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, dedupe([]string{"a", "b", "a", "c", "b"}))
}
