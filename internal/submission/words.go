package submission

import "strings"

// CountWords counts whitespace-separated tokens. Matches what the front end
// shows the user, so it stays deliberately simple.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
