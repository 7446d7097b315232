package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/interview-backend/internal/catalog"
	"github.com/stemsi/interview-backend/internal/model"
)

const twoSumSnippet = "class Solution:\n    def twoSum(self, nums: List[int], target: int) -> List[int]:\n        "

func TestDeriveSignatureLadder(t *testing.T) {
	t.Run("official snippet", func(t *testing.T) {
		detail := &catalog.RawDetail{Snippets: []catalog.CodeSnippet{
			{Lang: "Java", LangSlug: "java", Code: "class Solution {}"},
			{Lang: "Python3", LangSlug: "python3", Code: twoSumSnippet},
		}}
		sig := DeriveSignature(SignatureSource{Title: "Two Sum", Detail: detail, Lang: "python3"})
		assert.Equal(t, twoSumSnippet, sig)
	})

	t.Run("mined from content", func(t *testing.T) {
		sig := DeriveSignature(SignatureSource{
			Title:   "Valid Parentheses",
			Content: "Implement def isValid(s: str): that returns true if the string is valid.",
			Lang:    "python3",
		})
		assert.Contains(t, sig, "class Solution(object):")
		assert.Contains(t, sig, "def isValid(self, s):")
		assert.Contains(t, sig, ":type s: str")
		assert.Contains(t, sig, ":rtype: str")
	})

	t.Run("title fallback", func(t *testing.T) {
		sig := DeriveSignature(SignatureSource{Title: "Two Sum II - Input Array Is Sorted", Lang: "python3"})
		assert.Contains(t, sig, "def twosumiiinputarrayissorted(self, input):")
		assert.Contains(t, sig, ":type input: Any")
	})

	t.Run("empty title", func(t *testing.T) {
		assert.Contains(t, DeriveSignature(SignatureSource{}), "def solution(self, input):")
	})
}

func TestExtractParamsLimitsAndFallback(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, extractParams(`a = "x", b = "y", c = "z", d = "w"`))
	assert.Equal(t, []string{"nums", "target"}, extractParams("Given nums and a target value"))
	assert.Equal(t, []string{"s"}, extractParams("Given a string, return its reverse"))
	assert.Equal(t, []string{"K"}, extractParams("Given the root of a tree and K: INT"))
}

func TestSnippetParams(t *testing.T) {
	assert.Equal(t, []string{"nums", "target"}, snippetParams(twoSumSnippet))
	assert.Equal(t, []string{"m", "k"}, snippetParams("def f(self, m: Dict[str, int], k: int) -> int:"))
	assert.Empty(t, snippetParams("def g(self) -> None:"))
}

func TestDeriveTestCasesGroupsOfficialLinesByParameters(t *testing.T) {
	cases := DeriveTestCases(TestCaseSource{
		Title:    "Two Sum",
		Examples: []model.Example{{Output: "[0,1]"}, {Output: "[1,2]"}},
		Detail: &catalog.RawDetail{
			ExampleTestcases: "[2,7,11,15]\n9\n[3,2,4]\n6",
			Snippets:         []catalog.CodeSnippet{{Lang: "Python3", LangSlug: "python3", Code: twoSumSnippet}},
		},
		Lang: "python3",
	})

	require.Len(t, cases, 2)
	assert.Equal(t, model.TestCase{Input: "nums = [2,7,11,15]\ntarget = 9", Expected: "[0,1]"}, cases[0])
	assert.Equal(t, model.TestCase{Input: "nums = [3,2,4]\ntarget = 6", Expected: "[1,2]"}, cases[1])
}

func TestDeriveTestCasesAlternatingOfficialLines(t *testing.T) {
	cases := DeriveTestCases(TestCaseSource{
		Title:  "Sum",
		Detail: &catalog.RawDetail{ExampleTestcases: "[1,2,3]\n6\n[4]\n<b>4</b>"},
		Lang:   "python3",
	})

	require.Len(t, cases, 2)
	assert.Equal(t, model.TestCase{Input: "[1,2,3]", Expected: "6"}, cases[0])
	assert.Equal(t, model.TestCase{Input: "[4]", Expected: "4"}, cases[1])
}

func TestDeriveTestCasesPrefersExamplesOverUngroupedLines(t *testing.T) {
	cases := DeriveTestCases(TestCaseSource{
		Title:    "Two Sum",
		Examples: []model.Example{{Input: "nums = [2,7,11,15], target = 9", Output: "[0,1]"}},
		Detail: &catalog.RawDetail{
			ExampleTestcases: "[2,7,11,15]\n9\n[3,2,4]\n6",
			Snippets:         []catalog.CodeSnippet{{Lang: "Python3", LangSlug: "python3", Code: twoSumSnippet}},
		},
		Lang: "python3",
	})

	require.Len(t, cases, 1)
	assert.Equal(t, model.TestCase{Input: "nums = [2,7,11,15], target = 9", Expected: "[0,1]"}, cases[0])
}

func TestDeriveTestCasesFromExamples(t *testing.T) {
	cases := DeriveTestCases(TestCaseSource{
		Title:  "Something",
		Detail: &catalog.RawDetail{ExampleTestcases: "a\nb\nc"},
		Examples: []model.Example{
			{Input: "nums = [2,7,11,15], target = 9", Output: "[0,1]"},
			{Input: `"hello"`, Output: "holle"},
			{Input: "[1,2,3]", Output: "true"},
			{Input: "", Output: "x"},
		},
	})

	require.Len(t, cases, 3)
	assert.Equal(t, model.TestCase{Input: "nums = [2,7,11,15], target = 9", Expected: "[0,1]"}, cases[0])
	assert.Equal(t, model.TestCase{Input: `s = "hello"`, Expected: `"holle"`}, cases[1])
	assert.Equal(t, model.TestCase{Input: "nums = [1,2,3]", Expected: "True"}, cases[2])
}

func TestDeriveTestCasesKnownTitles(t *testing.T) {
	cases := DeriveTestCases(TestCaseSource{Title: "Add Binary"})
	require.Len(t, cases, 2)
	assert.Equal(t, `"100"`, cases[0].Expected)

	cases = DeriveTestCases(TestCaseSource{Title: "Reverse Vowels of a String"})
	require.Len(t, cases, 2)
	assert.Equal(t, `s = "hello"`, cases[0].Input)
}

func TestDeriveTestCasesGenericFallback(t *testing.T) {
	cases := DeriveTestCases(TestCaseSource{Title: "Unheard Of"})
	assert.Equal(t, []model.TestCase{
		{Input: `input = "test"`, Expected: `"result"`},
		{Input: `input = "example"`, Expected: `"output"`},
	}, cases)
}

func TestCleanExpected(t *testing.T) {
	cases := map[string]string{
		"true":                            "True",
		"<b>false</b>":                    "False",
		"'abc'":                           "abc",
		`<span class="x">42</span> extra`: "42",
		"[1, 2]":                          "[1, 2]",
	}
	for in, want := range cases {
		assert.Equal(t, want, cleanExpected(in), in)
	}
}
