package interview

import (
	"fmt"
	"strings"
)

const (
	greetingMessage = "Hi! I'm your AI interviewer. Let's start!\n\n" +
		"**Difficulty:** Easy, Medium, or Hard?\n" +
		"**Topic:** Arrays, Strings, Trees, Graphs, DP, etc.\n\n" +
		"Tell me both and I'll pick a problem for you!"

	noProblemFoundMessage = "I couldn't find a suitable problem with those preferences. Could you try a different topic or difficulty?"

	endMessage = "Thank you for the interview! Your session has been completed. You can now return to the home page."
)

func missingPreferencesMessage(missing []string) string {
	return "I'd like to make sure I select the perfect problem for you. Could you please specify your preferred " +
		strings.Join(missing, " and ") + "?"
}

func problemIntroMessage(difficulty, title string) string {
	return fmt.Sprintf("Perfect! Here's your %s problem: **%s**\n\nRead the details in the left panel. What's your approach?",
		difficulty, title)
}
