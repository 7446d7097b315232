// Package narration synthesizes agent messages as speech and caches the
// audio by content so identical narrations are synthesized once.
package narration

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

type rewrite struct {
	re   *regexp.Regexp
	with string
}

var markupRewrites = []rewrite{
	{regexp.MustCompile("```[^`]*```"), ""},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "$1"},
	{regexp.MustCompile(`\*(.*?)\*`), "$1"},
	{regexp.MustCompile(`#{1,6}\s*`), ""},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`(?m)^\s*[-*+]\s*`), ""},
	{regexp.MustCompile(`(?m)^\s*\d+\.\s*`), ""},
	{regexp.MustCompile(`\n+`), " "},
	{regexp.MustCompile(`\s+`), " "},
}

var fillerRewrites = []rewrite{
	{regexp.MustCompile(`(?i)\b(Here's|Here is)\b`), ""},
	{regexp.MustCompile(`(?i)\b(Let me|Let's)\b`), ""},
	{regexp.MustCompile(`(?i)\b(Please|Kindly)\b`), ""},
	{regexp.MustCompile(`(?i)\b(That's|That is)\b`), "That"},
	{regexp.MustCompile(`(?i)\b(You're|You are)\b`), "You"},
	{regexp.MustCompile(`(?i)\b(great|good|nice|perfect|excellent)\b`), ""},
	{regexp.MustCompile(`(?i)\b(very|really|quite|pretty)\b`), ""},
	{regexp.MustCompile(`\s+`), " "},
}

// Normalize reduces text to what is worth speaking: markdown is stripped,
// whitespace collapsed, and filler phrases and intensifiers dropped.
func Normalize(text string) string {
	for _, r := range markupRewrites {
		text = r.re.ReplaceAllString(text, r.with)
	}
	for _, r := range fillerRewrites {
		text = r.re.ReplaceAllString(text, r.with)
	}
	return strings.TrimSpace(text)
}

// Key is the cache key of an already normalized text and a voice.
func Key(normalized, voiceID string) string {
	sum := md5.Sum([]byte(normalized + "|" + voiceID))
	return hex.EncodeToString(sum[:])
}
