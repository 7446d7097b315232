// Package guidance produces the interviewer's replies: chat guidance, code
// critique, end-of-session feedback and hints.
package guidance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/interview-backend/internal/llm"
	"github.com/stemsi/interview-backend/internal/model"
)

const (
	// HistoryWindow is how many recent turns guidance sees.
	HistoryWindow = 5

	guidanceCodePrefix = 150
	analysisCodePrefix = 300
	temperature        = 0.5
)

const interviewerPrompt = `You are a technical interviewer conducting a coding interview. Be CONCISE and helpful.

Your role:
1. Guide candidates through problem-solving
2. Provide brief hints when stuck
3. Ask clarifying questions
4. Give constructive feedback

Keep responses short (2-3 sentences max). Be encouraging but don't give away solutions.`

// Replies used when no problem is bound or the reasoning service fails.
const (
	NoProblemReply      = "No problem selected yet. Let's start!"
	NoProblemAnalysis   = "No problem to compare against."
	GuidanceFallback    = "I'm having trouble responding right now. Can you walk me through your current approach?"
	AnalysisFallback    = "I couldn't review your code right now. Walk me through how it handles the examples and any edge cases."
	NoHintsReply        = "No specific hints available. What's your current approach?"
	FeedbackPlaceholder = "Thank you for completing the interview. Detailed feedback is being prepared and will appear here shortly."
	FeedbackUnavailable = "Detailed feedback could not be generated for this session. Review your final solution against the problem's test cases and reflect on the trade-offs you discussed."
)

// Engine turns interview context into prompts for the reasoning service.
type Engine struct {
	llm llm.Completer
	log zerolog.Logger
}

func NewEngine(c llm.Completer, log zerolog.Logger) *Engine {
	return &Engine{llm: c, log: log.With().Str("component", "guidance").Logger()}
}

// Guidance answers a chat message. recent holds the latest turns newest
// first, as returned by the transcript store.
func (e *Engine) Guidance(ctx context.Context, problem *model.Problem, recent []model.ChatTurn, code, message string) string {
	if problem == nil {
		return NoProblemReply
	}

	var b strings.Builder
	b.WriteString(interviewerPrompt)
	b.WriteString("\n\nCoding interview coach. Be CONCISE and helpful.\n\n")
	fmt.Fprintf(&b, "Problem: %s\n", problem.Title)
	if history := chronological(recent, HistoryWindow); len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", speaker(t.Role), t.Text)
		}
	}
	fmt.Fprintf(&b, "User: %s\n", message)
	fmt.Fprintf(&b, "Code: %s\n\n", orNone(truncate(code, guidanceCodePrefix)))
	b.WriteString("Give brief guidance. Max 2-3 sentences. Ask one clarifying question.")

	reply, err := e.llm.Complete(ctx, b.String(), temperature)
	if err != nil {
		e.log.Warn().Err(err).Str("problem", problem.Title).Msg("Guidance fell back")
		return GuidanceFallback
	}
	return reply
}

// AnalyzeCode critiques a submission, mentioning the test summary if any.
func (e *Engine) AnalyzeCode(ctx context.Context, problem *model.Problem, code string, tests *model.TestSummary) string {
	if problem == nil {
		return NoProblemAnalysis
	}

	testContext := ""
	if tests != nil {
		testContext = fmt.Sprintf(" Tests: %d/%d passed.", tests.Passed, tests.Total)
	}
	prompt := fmt.Sprintf("Technical interviewer. Be CONCISE and helpful.\n\nCode review for: %s\n\nCode:\n%s%s\n\nGive brief feedback on correctness, complexity, and improvements. Max 3 sentences.",
		problem.Title, truncate(code, analysisCodePrefix), testContext)

	reply, err := e.llm.Complete(ctx, prompt, temperature)
	if err != nil {
		e.log.Warn().Err(err).Str("problem", problem.Title).Msg("Code analysis fell back")
		return AnalysisFallback
	}
	return reply
}

// FeedbackInput is the whole-session context for end-of-session feedback.
type FeedbackInput struct {
	Problem    *model.Problem
	Difficulty string
	Turns      []model.ChatTurn
	Snapshots  []model.CodeSnapshot
	Duration   time.Duration
}

// Feedback writes the structured end-of-session report. Unlike the other
// calls it reports failure so the caller can keep its placeholder.
func (e *Engine) Feedback(ctx context.Context, in FeedbackInput) (string, error) {
	title := "No problem selected"
	if in.Problem != nil {
		title = in.Problem.Title
	}

	var b strings.Builder
	b.WriteString("You are an experienced technical interviewer providing comprehensive feedback. Be detailed, constructive, and encouraging.\n\n")
	b.WriteString("Generate comprehensive interview feedback based on this coding interview session.\n\n")
	fmt.Fprintf(&b, "Problem: %s\n", title)
	fmt.Fprintf(&b, "Difficulty: %s\n", orNone(in.Difficulty))
	fmt.Fprintf(&b, "Duration: %s\n\n", in.Duration.Round(time.Second))

	b.WriteString("Interview Conversation:\n")
	for _, t := range in.Turns {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(string(t.Role)), t.Text)
	}
	b.WriteString("\nCode Submissions:\n")
	for _, s := range in.Snapshots {
		fmt.Fprintf(&b, "Submission at %s", s.CreatedAt.Format(time.RFC3339))
		if s.TestSummary != nil {
			fmt.Fprintf(&b, " (tests %d/%d passed)", s.TestSummary.Passed, s.TestSummary.Total)
		}
		fmt.Fprintf(&b, ":\n%s\n\n", s.Code)
	}

	b.WriteString(`Provide feedback on:
1. Problem-solving approach
2. Communication skills
3. Code quality
4. Areas of strength
5. Areas for improvement
6. Overall performance rating (1-10)
7. Specific recommendations for future practice

Be constructive, specific, and encouraging.`)

	reply, err := e.llm.Complete(ctx, b.String(), temperature)
	if err != nil {
		return "", fmt.Errorf("generate feedback: %w", err)
	}
	return reply, nil
}

// Hint returns the level-th hint, 1-based, clamped to the last one.
func Hint(problem *model.Problem, level int) string {
	if problem == nil || len(problem.Hints) == 0 {
		return NoHintsReply
	}
	if level < 1 {
		level = 1
	}
	i := min(level-1, len(problem.Hints)-1)
	return "Hint: " + problem.Hints[i]
}

func chronological(newestFirst []model.ChatTurn, window int) []model.ChatTurn {
	if len(newestFirst) > window {
		newestFirst = newestFirst[:window]
	}
	out := make([]model.ChatTurn, len(newestFirst))
	for i, t := range newestFirst {
		out[len(out)-1-i] = t
	}
	return out
}

func speaker(role model.TurnRole) string {
	if role == model.TurnRoleUser {
		return "user"
	}
	return "assistant"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
