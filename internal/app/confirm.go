package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// stdinConfirm asks the user to approve a destructive operation.
// Anything other than an explicit yes refuses.
func stdinConfirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
