// Package suggest produces short completion hints from the text around a
// cursor. It is pure: no room state is visible to it.
package suggest

import "strings"

const maxSuggestions = 3

var (
	pythonMethods = []string{
		"append()", "extend()", "insert()", "remove()", "pop()", "clear()",
		"index()", "count()", "sort()", "reverse()", "copy()",
		"split()", "join()", "replace()", "strip()", "lower()", "upper()",
		"startswith()", "endswith()", "find()", "format()",
	}
	pythonModules = []string{
		"os", "sys", "json", "requests", "datetime", "time", "random",
		"math", "re", "collections", "itertools", "functools",
	}
	pythonBuiltins = []string{
		"print()", "len()", "str()", "int()", "float()", "bool()", "list()",
		"dict()", "tuple()", "set()", "range()", "enumerate()", "zip()",
		"map()", "filter()", "sorted()", "reversed()", "sum()", "min()", "max()",
	}
	pythonControl  = []string{"if ", "elif ", "for ", "while ", "try:", "except:", "with "}
	pythonPatterns = []string{
		`if __name__ == "__main__":`,
		"try:",
		"except Exception as e:",
		"with open() as f:",
	}

	jsControl    = []string{"if ", "for ", "while ", "switch "}
	jsArray      = []string{"map()", "filter()", "reduce()", "forEach()", "find()", "includes()"}
	jsPackages   = []string{"react", "lodash", "axios", "express", "fs"}
	jsConsole    = []string{"log()", "error()", "warn()", "info()"}
	jsStatements = []string{
		"console.log()", "const ", "let ", "function ", "if (", "for (",
		"return ", "async ", "await ", "try {", "catch (error) {",
	}
)

// Suggest returns at most three hints for code with the cursor at
// cursorPosition, counted in characters. Positions outside the text are
// clamped. Unknown languages get generic hints.
func Suggest(code string, cursorPosition int, language string) []string {
	before := textBefore(code, cursorPosition)
	line := before
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		line = before[i+1:]
	}

	var out []string
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "python":
		out = python(line, before)
	case "javascript", "typescript":
		out = javascript(line)
	default:
		out = generic(line)
	}

	out = dedupe(out)
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func python(line, before string) []string {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.Contains(line, "def ") && strings.Contains(line, "(") && !strings.Contains(line, "):"):
		return []string{"):"}
	case containsAny(line, pythonControl) && !strings.Contains(line, ":"):
		return []string{":"}
	case strings.Contains(line, "class ") && !strings.Contains(line, ":"):
		return []string{":"}
	case strings.HasSuffix(trimmed, "."):
		return pythonMethods
	case strings.Contains(line, "import ") || strings.Contains(line, "from "):
		return pythonModules
	case strings.HasSuffix(trimmed, "("):
		if strings.Contains(line, "print(") {
			return []string{`"Hello, World!"`, `f"Value: {variable}"`, "variable"}
		}
		if strings.Contains(line, "len(") {
			return []string{"list_name", "string_name", "dict_name"}
		}
		return nil
	}

	out := append([]string{}, pythonBuiltins...)
	if inDefinition(before) {
		out = append(out, "return ", "yield ", "raise ")
	}
	return append(out, pythonPatterns...)
}

func javascript(line string) []string {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.Contains(line, "function ") && strings.Contains(line, "(") && !strings.Contains(line, "){"):
		return []string{") {"}
	case !strings.Contains(line, "=>") && strings.Contains(line, "="):
		return []string{"=> {"}
	case containsAny(line, jsControl) && !strings.Contains(line, "{"):
		return []string{" {"}
	case strings.HasSuffix(trimmed, "."):
		return jsArray
	case strings.Contains(line, "import ") || strings.Contains(line, "require("):
		return jsPackages
	case strings.Contains(line, "console."):
		return jsConsole
	}
	return jsStatements
}

func generic(line string) []string {
	switch {
	case strings.HasSuffix(strings.TrimSpace(line), "."):
		return []string{"length", "size", "count"}
	case strings.Contains(line, "if") && !strings.Contains(line, "("):
		return []string{"("}
	case strings.Contains(line, "for") && !strings.Contains(line, "("):
		return []string{"("}
	}
	return []string{"if", "for", "while", "function", "return"}
}

// inDefinition walks back from the cursor to the nearest unindented line
// and reports whether a def or class header was seen on the way.
func inDefinition(text string) bool {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "def ") || strings.HasPrefix(stripped, "class ") {
			return true
		}
		if stripped != "" && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			return false
		}
	}
	return false
}

func textBefore(code string, cursor int) string {
	if cursor <= 0 {
		return ""
	}
	n := 0
	for i := range code {
		if n == cursor {
			return code[:i]
		}
		n++
	}
	return code
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
