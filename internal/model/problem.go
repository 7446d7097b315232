package model

import "time"

// Example is one worked example from a problem statement.
type Example struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// TestCase is an input/expected pair used to exercise a solution.
type TestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

// Problem is an enriched catalog problem. CatalogID is unique; once
// FunctionSignature and TestCases are populated they are reused as-is.
type Problem struct {
	ID                int64      `json:"id"`
	CatalogID         string     `json:"catalog_id"`
	Title             string     `json:"title"`
	Slug              string     `json:"slug"`
	Difficulty        string     `json:"difficulty"`
	Topics            []string   `json:"topics"`
	Description       string     `json:"description"`
	Constraints       string     `json:"constraints"`
	Examples          []Example  `json:"examples"`
	Hints             []string   `json:"hints"`
	FunctionSignature string     `json:"function_signature"`
	TestCases         []TestCase `json:"test_cases"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
