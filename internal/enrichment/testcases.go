package enrichment

import (
	"html"
	"regexp"
	"strings"

	"github.com/stemsi/interview-backend/internal/catalog"
	"github.com/stemsi/interview-backend/internal/model"
)

// TestCaseSource is what the test case ladder may draw on.
type TestCaseSource struct {
	Title    string
	Examples []model.Example
	Detail   *catalog.RawDetail
	Lang     string
}

type testCaseTier func(src TestCaseSource) ([]model.TestCase, bool)

var testCaseLadder = []testCaseTier{
	groupedTestCases,
	exampleTestCases,
	alternatingTestCases,
	knownTitleTestCases,
}

// DeriveTestCases returns the first non-empty result of the ladder. The
// last resort is a pair of generic placeholder cases.
func DeriveTestCases(src TestCaseSource) []model.TestCase {
	for _, tier := range testCaseLadder {
		if cases, ok := tier(src); ok {
			return cases
		}
	}
	return []model.TestCase{
		{Input: `input = "test"`, Expected: `"result"`},
		{Input: `input = "example"`, Expected: `"output"`},
	}
}

// officialLines returns the cleaned, non-empty lines of the catalog's
// example test case text.
func officialLines(src TestCaseSource) []string {
	if src.Detail == nil {
		return nil
	}
	var lines []string
	for _, l := range strings.Split(strings.TrimSpace(src.Detail.ExampleTestcases), "\n") {
		if l = cleanInputLine(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// alternatingTestCases reads the official lines as input, expected pairs.
// The catalog text usually holds inputs only, so this runs after the
// parsed examples have been tried.
func alternatingTestCases(src TestCaseSource) ([]model.TestCase, bool) {
	lines := officialLines(src)
	if len(lines) < 2 || len(lines)%2 != 0 {
		return nil, false
	}
	cases := make([]model.TestCase, 0, len(lines)/2)
	for i := 0; i+1 < len(lines); i += 2 {
		expected := cleanExpected(lines[i+1])
		if expected == "" {
			return nil, false
		}
		cases = append(cases, model.TestCase{Input: lines[i], Expected: expected})
	}
	return cases, true
}

// groupedTestCases splits the official lines into one group per parsed
// example, sized by the snippet's parameter count, and names each input
// after its parameter.
func groupedTestCases(src TestCaseSource) ([]model.TestCase, bool) {
	lines := officialLines(src)
	if len(lines) == 0 || len(src.Examples) == 0 {
		return nil, false
	}
	snippet, ok := src.Detail.Snippet(src.Lang)
	if !ok {
		return nil, false
	}
	params := snippetParams(snippet)
	if len(params) == 0 || len(lines) != len(params)*len(src.Examples) {
		return nil, false
	}

	cases := make([]model.TestCase, 0, len(src.Examples))
	for i, ex := range src.Examples {
		group := lines[i*len(params) : (i+1)*len(params)]
		parts := make([]string, len(params))
		for j, p := range params {
			parts[j] = p + " = " + group[j]
		}
		expected := formatOutput(ex.Output)
		if expected == "" {
			return nil, false
		}
		cases = append(cases, model.TestCase{Input: strings.Join(parts, "\n"), Expected: expected})
	}
	return cases, true
}

func exampleTestCases(src TestCaseSource) ([]model.TestCase, bool) {
	var cases []model.TestCase
	for _, ex := range src.Examples {
		in, out := formatInput(ex.Input), formatOutput(ex.Output)
		if in == "" || out == "" {
			continue
		}
		cases = append(cases, model.TestCase{Input: in, Expected: out})
	}
	return cases, len(cases) > 0
}

func knownTitleTestCases(src TestCaseSource) ([]model.TestCase, bool) {
	title := strings.ToLower(src.Title)
	switch {
	case strings.Contains(title, "two sum"):
		return []model.TestCase{
			{Input: "nums = [2,7,11,15]\ntarget = 9", Expected: "[0,1]"},
			{Input: "nums = [3,2,4]\ntarget = 6", Expected: "[1,2]"},
		}, true
	case strings.Contains(title, "reverse") && strings.Contains(title, "vowels"):
		return []model.TestCase{
			{Input: `s = "hello"`, Expected: `"holle"`},
			{Input: `s = "leetcode"`, Expected: `"leotcede"`},
		}, true
	case strings.Contains(title, "add binary"):
		return []model.TestCase{
			{Input: "a = \"11\"\nb = \"1\"", Expected: `"100"`},
			{Input: "a = \"1010\"\nb = \"1011\"", Expected: `"10101"`},
		}, true
	}
	return nil, false
}

var (
	entity      = regexp.MustCompile(`&[a-zA-Z#0-9]+;`)
	firstNumber = regexp.MustCompile(`-?\d+`)
	anySpace    = regexp.MustCompile(`\s+`)
)

func cleanInputLine(s string) string {
	s = anyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}

// cleanExpected normalises an expected output line: markup and entities
// go, booleans are capitalised and stray single quotes are dropped. If
// markup residue survives, the value is reduced to a boolean or the first
// number it contains.
func cleanExpected(s string) string {
	residue := strings.Contains(s, "<") || strings.Contains(s, "class=")
	s = anyTag.ReplaceAllString(s, "")
	s = entity.ReplaceAllString(s, "")
	s = strings.TrimSpace(anySpace.ReplaceAllString(s, " "))

	switch strings.ToLower(s) {
	case "true":
		return "True"
	case "false":
		return "False"
	}
	if len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
		s = s[1 : len(s)-1]
	}

	if residue || strings.Contains(s, "class=") {
		lower := strings.ToLower(s)
		switch {
		case strings.Contains(lower, "true"):
			return "True"
		case strings.Contains(lower, "false"):
			return "False"
		}
		if n := firstNumber.FindString(s); n != "" {
			return n
		}
	}
	return s
}

func formatInput(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	if strings.Contains(in, "=") && !strings.HasPrefix(in, "[") {
		return in
	}

	if strings.HasPrefix(in, "[") && strings.HasSuffix(in, "]") {
		switch {
		case strings.Contains(in, `"`) || strings.Contains(in, "'"):
			return "strs = " + in
		case strings.Count(in, ",") > 0 && isDigitList(in):
			return "nums = " + in
		case isDigitList(in):
			return "digits = " + in
		}
		return "input = " + in
	}

	if isQuoted(in) {
		return "s = " + in
	}
	return in
}

func formatOutput(out string) string {
	out = strings.TrimSpace(out)
	if out == "" {
		return ""
	}
	switch {
	case isQuoted(out):
		return out
	case strings.EqualFold(out, "true"):
		return "True"
	case strings.EqualFold(out, "false"):
		return "False"
	case isInteger(out):
		return out
	case strings.HasPrefix(out, "[") && strings.HasSuffix(out, "]"):
		return out
	}
	return `"` + out + `"`
}

func isQuoted(s string) bool {
	return len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\''))
}

func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isDigitList(s string) bool {
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return false
	}
	for _, part := range strings.Split(inner, ",") {
		if !isInteger(strings.TrimSpace(part)) {
			return false
		}
	}
	return true
}
