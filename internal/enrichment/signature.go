package enrichment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stemsi/interview-backend/internal/catalog"
)

// SignatureSource is what the signature ladder may draw on. Detail is nil
// when the catalog could not be reached.
type SignatureSource struct {
	Title   string
	Content string
	Detail  *catalog.RawDetail
	Lang    string
}

type signatureTier func(src SignatureSource) (string, bool)

var signatureLadder = []signatureTier{
	officialSignature,
	contentSignature,
}

// DeriveSignature returns the first signature the ladder yields, falling
// back to one built from the title. The result is never empty.
func DeriveSignature(src SignatureSource) string {
	for _, tier := range signatureLadder {
		if sig, ok := tier(src); ok {
			return sig
		}
	}
	return titleSignature(src.Title)
}

func officialSignature(src SignatureSource) (string, bool) {
	if src.Detail == nil {
		return "", false
	}
	return src.Detail.Snippet(src.Lang)
}

var signaturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)def\s+(\w+)\s*\([^)]*\)\s*:`),
	regexp.MustCompile(`(?i)public\s+\w+\s+(\w+)\s*\([^)]*\)`),
	regexp.MustCompile(`(?i)int\s+(\w+)\s*\([^)]*\)`),
	regexp.MustCompile(`(?i)string\s+(\w+)\s*\([^)]*\)`),
	regexp.MustCompile(`(?i)bool\s+(\w+)\s*\([^)]*\)`),
	regexp.MustCompile(`(?i)List<.*?>\s+(\w+)\s*\([^)]*\)`),
}

var paramPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\w+)\s*:\s*str`),
	regexp.MustCompile(`(?i)(\w+)\s*:\s*int`),
	regexp.MustCompile(`(?i)(\w+)\s*:\s*List`),
	regexp.MustCompile(`(?i)(\w+)\s*:\s*bool`),
	regexp.MustCompile(`(?i)(\w+)\s*=\s*"[^"]*"`),
	regexp.MustCompile(`(?i)(\w+)\s*=\s*\[[^\]]*\]`),
	regexp.MustCompile(`(?i)(\w+)\s*=\s*\d+`),
}

// fallbackParams are guessed from the statement when no parameter is
// spelled out. A name is used only when every cue appears in the text.
var fallbackParams = []struct {
	name string
	cues []string
}{
	{"nums", []string{"nums"}},
	{"target", []string{"target"}},
	{"s", []string{"s", "string"}},
	{"root", []string{"root"}},
}

const maxParams = 3

func contentSignature(src SignatureSource) (string, bool) {
	content := src.Content
	if content == "" && src.Detail != nil {
		content = src.Detail.Content
	}
	if content == "" {
		return "", false
	}

	for _, re := range signaturePatterns {
		m := re.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		name := m[1]
		params := extractParams(content)
		lower := strings.ToLower(content)

		var b strings.Builder
		b.WriteString("class Solution(object):\n")
		fmt.Fprintf(&b, "    def %s(self", name)
		for _, p := range params {
			b.WriteString(", ")
			b.WriteString(p)
		}
		b.WriteString("):\n")
		b.WriteString("        \"\"\"\n")
		for _, p := range params {
			fmt.Fprintf(&b, "        :type %s: %s\n", p, inferParamType(p, lower))
		}
		fmt.Fprintf(&b, "        :rtype: %s\n", inferReturnType(lower))
		b.WriteString("        \"\"\"\n")
		b.WriteString("        # Your code here\n")
		b.WriteString("        pass")
		return b.String(), true
	}
	return "", false
}

// extractParams collects up to three distinct parameter names mentioned in
// the statement, or the first fallback names that appear in it.
func extractParams(content string) []string {
	var params []string
	seen := make(map[string]bool)
	for _, re := range paramPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			if seen[m[1]] {
				continue
			}
			seen[m[1]] = true
			params = append(params, m[1])
		}
	}

	if len(params) == 0 {
		lower := strings.ToLower(content)
		for _, p := range fallbackParams {
			if containsAll(lower, p.cues) {
				params = append(params, p.name)
			}
		}
	}
	if len(params) > maxParams {
		params = params[:maxParams]
	}
	return params
}

func containsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

func inferParamType(name, content string) string {
	n := strings.ToLower(name)
	switch {
	case oneOf(n, "nums", "digits", "arr", "array") || strings.Contains(content, "list"):
		return "List[int]"
	case oneOf(n, "s", "str", "string") || strings.Contains(content, "string"):
		return "str"
	case oneOf(n, "root", "node") || strings.Contains(content, "tree"):
		return "TreeNode"
	case oneOf(n, "target", "k", "n") || strings.Contains(content, "integer"):
		return "int"
	case oneOf(n, "matrix", "grid") || strings.Contains(content, "matrix"):
		return "List[List[int]]"
	}
	return "Any"
}

func inferReturnType(content string) string {
	if !strings.Contains(content, "return") {
		return "Any"
	}
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(content, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("list", "array"):
		return "List[int]"
	case has("string", "str"):
		return "str"
	case has("boolean", "bool"):
		return "bool"
	case has("integer", "int"):
		return "int"
	}
	return "Any"
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

func titleSignature(title string) string {
	name := nonAlnum.ReplaceAllString(strings.ToLower(title), "")
	if name == "" {
		name = "solution"
	}
	return fmt.Sprintf("class Solution(object):\n    def %s(self, input):\n        \"\"\"\n        :type input: Any\n        :rtype: Any\n        \"\"\"\n        # Your code here\n        pass", name)
}

func oneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}

var snippetDef = regexp.MustCompile(`def\s+\w+\s*\(\s*self\s*(?:,([^)]*))?\)`)

// snippetParams returns the parameter names declared by a starter snippet.
func snippetParams(snippet string) []string {
	m := snippetDef.FindStringSubmatch(snippet)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return nil
	}

	var params []string
	depth, start := 0, 0
	raw := m[1]
	for i := 0; i <= len(raw); i++ {
		if i < len(raw) {
			switch raw[i] {
			case '[', '(':
				depth++
				continue
			case ']', ')':
				depth--
				continue
			case ',':
				if depth > 0 {
					continue
				}
			default:
				continue
			}
		}
		part := strings.TrimSpace(raw[start:i])
		start = i + 1
		if name, _, _ := strings.Cut(part, ":"); strings.TrimSpace(name) != "" {
			params = append(params, strings.TrimSpace(name))
		}
	}
	return params
}
