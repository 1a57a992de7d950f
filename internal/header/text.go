// Package header rewrites the header row of a survey export into normalized,
// dot-joined column names.
package header

import "strings"

// textStripper deletes the punctuation that never survives into a column name.
var textStripper = strings.NewReplacer(
	"?", "",
	":", "",
	"[", "",
	"]", "",
	"(", "",
	")", "",
	"/", "",
	"-", "",
)

// questionNumberReplacer rewrites a question-number token such as "Q12[01]"
// into its dotted form "12.01".
var questionNumberReplacer = strings.NewReplacer(
	"Q", "",
	"[", ".",
	"]", "",
	" ", "",
	"-", ".",
)

// NormalizeText joins the words of s (split on single spaces) with dots,
// lowercases the result, deletes the characters ? : [ ] ( ) / - and trims
// leading and trailing dots.
//
// Consecutive spaces yield consecutive dots; they are not collapsed.
func NormalizeText(s string) string {
	joined := strings.ToLower(strings.Join(strings.Split(s, " "), "."))
	return strings.Trim(textStripper.Replace(joined), ".")
}

// CleanQuestionNumber removes every "Q", turns "[" and "-" into ".", and
// drops "]" and spaces.
//
// Examples:
//   - "Q12[01]" -> "12.01"
//   - "Q7a-2"   -> "7a.2"
func CleanQuestionNumber(token string) string {
	return questionNumberReplacer.Replace(token)
}

// questionName builds the output name shared by both question shapes.
func questionName(token, text string) string {
	return NormalizeText(text) + "." + CleanQuestionNumber(token)
}
