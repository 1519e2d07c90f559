package helpers

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PromptForYesNo prompts the user for a yes/no question
// Returns true for yes, false for no, or the default value if no input
func PromptForYesNo(out io.Writer, reader *bufio.Reader, promptText string, defaultValue bool) bool {
	label := buildYesNoLabel(defaultValue)
	fmt.Fprintf(out, "%s [%s]: ", promptText, label)

	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))

	if line == "" {
		return defaultValue
	}

	return isAffirmativeResponse(line)
}

// buildYesNoLabel constructs the appropriate y/N or Y/n label based on the default
func buildYesNoLabel(defaultIsYes bool) string {
	if defaultIsYes {
		return "Y/n"
	}
	return "y/N"
}

// isAffirmativeResponse checks if a response is affirmative (yes)
func isAffirmativeResponse(response string) bool {
	return response == "y" || response == "yes"
}
