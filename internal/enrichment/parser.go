// Package enrichment turns a catalog reference into a stored problem with
// a parsed statement, a function signature and test cases.
package enrichment

import (
	"html"
	"regexp"
	"strings"

	"github.com/stemsi/interview-backend/internal/model"
)

// Parsed is the structured form of a problem statement.
type Parsed struct {
	Description string
	Constraints string
	Examples    []model.Example
}

// exampleLayout recognises one markup dialect for worked examples. Layouts
// with a boundary split the content at every boundary match and require
// body to match a whole segment; the others match body directly.
type exampleLayout struct {
	boundary *regexp.Regexp
	body     *regexp.Regexp
}

// Layouts in order of specificity. Submatch 1 is the example number, 2 the
// input, 3 the output and 4, when present, the explanation.
var exampleLayouts = []exampleLayout{
	{body: regexp.MustCompile(`(?is)<strong class="example">Example\s*(\d+):</strong>.*?<div class="example-block">.*?<strong>Input:</strong>\s*<span[^>]*>(.*?)</span>.*?<strong>Output:</strong>\s*<span[^>]*>(.*?)</span>.*?</div>`)},
	{body: regexp.MustCompile(`(?is)<strong>Example\s*(\d+):</strong>.*?<pre>.*?<strong>Input:</strong>\s*(.*?)<strong>Output:</strong>\s*(.*?)(?:<strong>Explanation:</strong>\s*(.*?))?</pre>`)},
	{body: regexp.MustCompile(`(?is)<b>Example\s*(\d+):</b>.*?<pre>.*?<b>Input:</b>\s*(.*?)<b>Output:</b>\s*(.*?)(?:<b>Explanation:</b>\s*(.*?))?</pre>`)},
	{
		boundary: regexp.MustCompile(`(?i)<strong>Example`),
		body:     regexp.MustCompile(`(?is)^<strong>Example\s*(\d+):</strong>.*?<strong>Input:</strong>\s*(.*?)<strong>Output:</strong>\s*(.*?)(?:<strong>Explanation:</strong>\s*(.*?))?$`),
	},
	{
		boundary: regexp.MustCompile(`(?i)Example`),
		body:     regexp.MustCompile(`(?is)^Example\s*(\d+):.*?Input:\s*(.*?)Output:\s*(.*?)(?:Explanation:\s*(.*?))?$`),
	},
	{
		boundary: regexp.MustCompile(`(?i)<strong>Example`),
		body:     regexp.MustCompile(`(?is)^<strong>Example\s*(\d+):</strong>.*?<strong>Input:</strong>\s*(.*?)<strong>Output:</strong>\s*(.*?)$`),
	},
	{
		boundary: regexp.MustCompile(`(?i)<b>Example`),
		body:     regexp.MustCompile(`(?is)^<b>Example\s*(\d+):</b>.*?<b>Input:</b>\s*(.*?)<b>Output:</b>\s*(.*?)$`),
	},
}

var constraintLayouts = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<strong>Constraints:</strong>(.*?)(?:<p>|<br>|$)`),
	regexp.MustCompile(`(?is)<b>Constraints:</b>(.*?)(?:<p>|<br>|$)`),
	regexp.MustCompile(`(?is)Constraints:(.*?)(?:<p>|<br>|$)`),
}

type span struct{ start, end int }

// matches returns the submatches and byte spans of every example found.
func (l exampleLayout) matches(content string) ([][]string, []span) {
	if l.boundary == nil {
		var subs [][]string
		var spans []span
		for _, idx := range l.body.FindAllStringSubmatchIndex(content, -1) {
			subs = append(subs, submatches(content, idx))
			spans = append(spans, span{idx[0], idx[1]})
		}
		return subs, spans
	}

	starts := l.boundary.FindAllStringIndex(content, -1)
	var subs [][]string
	var spans []span
	for i, s := range starts {
		end := len(content)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		seg := content[s[0]:end]
		if m := l.body.FindStringSubmatch(seg); m != nil {
			subs = append(subs, m)
			spans = append(spans, span{s[0], end})
		}
	}
	return subs, spans
}

func (l exampleLayout) strip(content string) string {
	_, spans := l.matches(content)
	if len(spans) == 0 {
		return content
	}
	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(content[last:sp.start])
		last = sp.end
	}
	b.WriteString(content[last:])
	return b.String()
}

func submatches(s string, idx []int) []string {
	out := make([]string, len(idx)/2)
	for i := range out {
		if idx[2*i] >= 0 {
			out[i] = s[idx[2*i]:idx[2*i+1]]
		}
	}
	return out
}

// ParseContent extracts description, constraints and examples from raw
// statement markup. The first example layout yielding anything wins.
func ParseContent(content string) Parsed {
	if strings.TrimSpace(content) == "" {
		return Parsed{}
	}

	var parsed Parsed
	for _, layout := range exampleLayouts {
		subs, _ := layout.matches(content)
		if len(subs) == 0 {
			continue
		}
		for _, m := range subs {
			ex := model.Example{
				Input:  CleanHTML(m[2]),
				Output: CleanHTML(m[3]),
			}
			if len(m) > 4 {
				ex.Explanation = CleanHTML(m[4])
			}
			parsed.Examples = append(parsed.Examples, ex)
		}
		break
	}

	for _, re := range constraintLayouts {
		if m := re.FindStringSubmatch(content); m != nil {
			parsed.Constraints = CleanHTML(m[1])
			break
		}
	}

	description := content
	for _, layout := range exampleLayouts {
		description = layout.strip(description)
	}
	for _, re := range constraintLayouts {
		description = re.ReplaceAllString(description, "")
	}
	parsed.Description = CleanHTML(description)

	return parsed
}

var (
	breakTag   = regexp.MustCompile(`(?i)<br\s*/?>`)
	paraOpen   = regexp.MustCompile(`(?i)<p[^>]*>`)
	paraClose  = regexp.MustCompile(`(?i)</p>`)
	anyTag     = regexp.MustCompile(`<[^>]+>`)
	blankLines = regexp.MustCompile(`\n\s*\n`)
	hSpace     = regexp.MustCompile(`[ \t]+`)
)

// CleanHTML strips markup while keeping paragraph breaks. Tags are removed
// before entities are decoded so escaped comparison operators survive.
func CleanHTML(s string) string {
	if s == "" {
		return ""
	}
	s = breakTag.ReplaceAllString(s, "\n")
	s = paraOpen.ReplaceAllString(s, "\n")
	s = paraClose.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = blankLines.ReplaceAllString(s, "\n\n")
	s = hSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
