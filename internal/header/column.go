package header

import (
	"regexp"
	"strings"
)

// Shape identifies which naming rule applies to a raw column name.
type Shape string

const (
	ShapeNonQuestion         Shape = "NON_QUESTION"
	ShapeBracketedQuestion   Shape = "BRACKETED_QUESTION"
	ShapeUnbracketedQuestion Shape = "UNBRACKETED_QUESTION"
)

// questionPrefix marks a survey question column.
const questionPrefix = "Q"

var (
	// compactBracketPattern matches "Q12[01] Which item..." where the
	// sub-item index directly follows the question number.
	compactBracketPattern = regexp.MustCompile(`^(Q\d\d?\w?-?\d?\[(\d\d?)\]) *(.*)$`)

	// bracketSplitPattern separates a spaced question number from its text,
	// as in "Q12 [01] Which item...".
	bracketSplitPattern = regexp.MustCompile(` {1,2}\[(\d\d?)?`)

	// questionTokenPattern matches a bare question number such as "Q7" or "Q7a-2".
	questionTokenPattern = regexp.MustCompile(`^Q\d\d?\w?-?\d?$`)
)

// Column is one classified header field.
type Column interface {
	// Shape reports which rule produced the column.
	Shape() Shape
	// Clean returns the normalized column name.
	Clean() string
}

// NonQuestion is any column whose name does not start with "Q".
type NonQuestion struct {
	Name string
}

func (c NonQuestion) Shape() Shape  { return ShapeNonQuestion }
func (c NonQuestion) Clean() string { return NormalizeText(c.Name) }

// BracketedQuestion is a "Q" column carrying a bracketed sub-item index.
type BracketedQuestion struct {
	Token string // question number token, e.g. "Q12[01]" or "Q12"
	// SubItem is the index captured next to the bracket. It never reaches the
	// output: the dotted number is derived from Token alone, so a spaced
	// field such as "Q12 [01] ..." keeps only "12".
	SubItem string
	Text    string
}

func (c BracketedQuestion) Shape() Shape  { return ShapeBracketedQuestion }
func (c BracketedQuestion) Clean() string { return questionName(c.Token, c.Text) }

// UnbracketedQuestion is a "Q" column of the form "Q7 How satisfied...".
type UnbracketedQuestion struct {
	Token string
	Text  string
}

func (c UnbracketedQuestion) Shape() Shape  { return ShapeUnbracketedQuestion }
func (c UnbracketedQuestion) Clean() string { return questionName(c.Token, c.Text) }

// Classify decides which naming rule applies to raw.
//
// The returned Column is never nil. When raw starts with "Q" but fits
// neither question shape, Classify also returns a *MalformedColumnError and
// the Column reproduces the historical best-effort name for the field.
func Classify(raw string) (Column, error) {
	if !strings.HasPrefix(raw, questionPrefix) {
		return NonQuestion{Name: raw}, nil
	}
	if strings.Contains(raw, "[") {
		return classifyBracketed(raw)
	}
	return classifyUnbracketed(raw)
}

func classifyBracketed(raw string) (Column, error) {
	if m := compactBracketPattern.FindStringSubmatch(raw); m != nil && NormalizeText(m[3]) != "" {
		return BracketedQuestion{Token: m[1], SubItem: m[2], Text: m[3]}, nil
	}

	segments := bracketSplitPattern.Split(raw, -1)
	if len(segments) < 2 {
		// Nothing to split on: the whole field stands in for both parts.
		return BracketedQuestion{Token: raw, Text: raw}, malformed(raw, ReasonUnrecognizedBracket)
	}

	col := BracketedQuestion{
		Token: segments[0],
		Text:  segments[len(segments)-1],
	}
	if m := bracketSplitPattern.FindStringSubmatch(raw); m != nil {
		col.SubItem = m[1]
	}

	if !questionTokenPattern.MatchString(col.Token) {
		return col, malformed(raw, ReasonInvalidQuestionNumber)
	}
	if NormalizeText(col.Text) == "" {
		return col, malformed(raw, ReasonMissingQuestionText)
	}
	return col, nil
}

func classifyUnbracketed(raw string) (Column, error) {
	words := strings.Split(raw, " ")
	col := UnbracketedQuestion{
		Token: words[0],
		Text:  strings.Join(words[1:], " "),
	}

	if !questionTokenPattern.MatchString(col.Token) {
		return col, malformed(raw, ReasonInvalidQuestionNumber)
	}
	if NormalizeText(col.Text) == "" {
		return col, malformed(raw, ReasonMissingQuestionText)
	}
	return col, nil
}
