package interview

import (
	"regexp"
	"slices"
	"strings"
)

// Preferences is what a candidate message says about the problem they want.
type Preferences struct {
	Difficulty  string
	Topics      []string
	ProblemName string
}

var difficulties = []string{"easy", "medium", "hard"}

type topicKeyword struct {
	match *regexp.Regexp
	topic string
}

func substring(word string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(word))
}

func wholeWord(word string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
}

// topicKeywords maps phrases to catalog topic slugs. Order matters: topics
// are appended in table order.
var topicKeywords = []topicKeyword{
	{substring("array"), "arrays"},
	{substring("string"), "strings"},
	{substring("tree"), "trees"},
	{substring("graph"), "graphs"},
	{substring("dynamic programming"), "dynamic-programming"},
	{wholeWord("dp"), "dynamic-programming"},
	{substring("binary search"), "binary-search"},
	{substring("two pointer"), "two-pointers"},
	{substring("sliding window"), "sliding-window"},
	{substring("hash"), "hash-table"},
	{substring("stack"), "stack"},
	{substring("queue"), "queue"},
	{substring("linked list"), "linked-list"},
	{substring("recursion"), "recursion"},
	{substring("backtracking"), "backtracking"},
	{substring("greedy"), "greedy"},
	{substring("sorting"), "sorting"},
	{substring("heap"), "heap"},
	{wholeWord("trie"), "trie"},
	{substring("union find"), "union-find"},
	{substring("segment tree"), "segment-tree"},
	{substring("fenwick tree"), "fenwick-tree"},
}

type namePattern struct {
	re *regexp.Regexp
	// loose patterns also catch plain preference talk ("let's do an array
	// problem"), so their captures must look like a title.
	loose bool
}

var problemNamePatterns = []namePattern{
	{re: regexp.MustCompile(`(?i)problem\s+(?:called|named)\s+["']?([^"'.!?\n]+?)["']?\s*(?:[.!?]|$)`)},
	{re: regexp.MustCompile(`(?i)let'?s\s+do\s+(?:the\s+)?["']?([^"'.!?\n]+?)["']?\s+problem`), loose: true},
	{re: regexp.MustCompile(`(?i)solve\s+["']([^"'\n]+)["']`)},
}

var articles = []string{"a", "an", "some", "any", "another", "one"}

// titleLike rejects captures that are an article phrase or that name a
// difficulty or topic rather than a problem.
func titleLike(name string) bool {
	lower := strings.ToLower(name)
	first, _, _ := strings.Cut(lower, " ")
	if slices.Contains(articles, first) {
		return false
	}
	for _, d := range difficulties {
		if strings.Contains(lower, d) {
			return false
		}
	}
	for _, k := range topicKeywords {
		if k.match.MatchString(lower) {
			return false
		}
	}
	return true
}

// ExtractPreferences reads a difficulty, topics and an explicit problem name
// out of free text. The first difficulty found in easy, medium, hard order
// wins; topics come back deduplicated.
func ExtractPreferences(message string) Preferences {
	lower := strings.ToLower(message)

	var p Preferences
	for _, d := range difficulties {
		if strings.Contains(lower, d) {
			p.Difficulty = d
			break
		}
	}

	for _, k := range topicKeywords {
		if k.match.MatchString(lower) && !slices.Contains(p.Topics, k.topic) {
			p.Topics = append(p.Topics, k.topic)
		}
	}

	for _, pat := range problemNamePatterns {
		m := pat.re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if name == "" || (pat.loose && !titleLike(name)) {
			continue
		}
		p.ProblemName = name
		break
	}
	return p
}

// mergeTopics appends the new topics not already present.
func mergeTopics(existing, extracted []string) []string {
	out := slices.Clone(existing)
	for _, t := range extracted {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// missingPreferences lists the prompts for what is still unknown.
func missingPreferences(difficulty string, topics []string) []string {
	var missing []string
	if difficulty == "" {
		missing = append(missing, "difficulty level (easy, medium, or hard)")
	}
	if len(topics) == 0 {
		missing = append(missing, "topic(s) you'd like to work on")
	}
	return missing
}
