package event

import "strings"

// SplitFullName splits a combined display name into first and last names.
// The last whitespace-delimited token is the last name; everything before it
// stays together as the first name, so multi-word first names (or family
// first names in a list) survive: "Brett The Dork Meyer" splits to
// ("Brett The Dork", "Meyer"). A single-token name becomes the first name
// with the last name left empty.
func SplitFullName(full string) (first, last string) {
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	default:
		return strings.Join(tokens[:len(tokens)-1], " "), tokens[len(tokens)-1]
	}
}

// JoinName combines first and last names into a display name, tolerating
// either side being empty.
func JoinName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
