package header

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// headerAlphabet mixes letters, digits, spaces and every stripped character.
var headerAlphabet = []interface{}{
	'a', 'b', 'Z', 'Q', 'x', '1', '9', ' ', '.', '?', ':', '[', ']', '(', ')', '/', '-',
}

// genHeaderText generates column-like text drawn from headerAlphabet.
func genHeaderText() gopter.Gen {
	return gen.SliceOf(gen.OneConstOf(headerAlphabet...), reflect.TypeOf(rune(0))).Map(func(chars []rune) string {
		return string(chars)
	})
}

// genWords generates one to four lowercase words joined by single spaces.
func genWords() gopter.Gen {
	word := gen.IntRange(1, 8).FlatMap(func(n interface{}) gopter.Gen {
		return gen.SliceOfN(n.(int), gen.AlphaLowerChar())
	}, reflect.TypeOf([]rune{})).Map(func(r []rune) string { return string(r) })

	return gen.IntRange(1, 4).FlatMap(func(n interface{}) gopter.Gen {
		return gen.SliceOfN(n.(int), word)
	}, reflect.TypeOf([]string{})).Map(func(words []string) string {
		return strings.Join(words, " ")
	})
}

// genWellFormedField generates a field of one of the three recognized shapes.
func genWellFormedField() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 2),
		gen.IntRange(1, 99),
		gen.IntRange(1, 99),
		genWords(),
	).Map(func(vals []interface{}) string {
		question := vals[1].(int)
		subItem := vals[2].(int)
		text := vals[3].(string)
		switch vals[0].(int) {
		case 0:
			return "Resp " + text
		case 1:
			return fmt.Sprintf("Q%d[%02d] %s", question, subItem, text)
		default:
			return fmt.Sprintf("Q%d %s", question, text)
		}
	})
}

// Property: normalizing a header never adds or removes columns.
func TestNormalizePreservesColumnCount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("output has as many fields as input", prop.ForAll(
		func(fields []string) bool {
			raw := strings.Join(fields, Separator)
			out := Normalize(raw)
			want := len(strings.Split(raw, Separator))
			got := len(strings.Split(out, Separator))
			if got != want {
				t.Logf("raw %q -> %q: %d fields, want %d", raw, out, got, want)
				return false
			}
			return true
		},
		gen.SliceOf(genHeaderText()).SuchThat(func(fields []string) bool {
			return len(fields) > 0
		}),
	))

	properties.TestingRun(t)
}

// Property: NormalizeText is idempotent and strips all listed punctuation.
func TestNormalizeTextProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("normalizing twice equals normalizing once", prop.ForAll(
		func(s string) bool {
			once := NormalizeText(s)
			return NormalizeText(once) == once
		},
		genHeaderText(),
	))

	properties.Property("no stripped punctuation survives", prop.ForAll(
		func(s string) bool {
			out := NormalizeText(s)
			if strings.ContainsAny(out, "?:[]()/- ") {
				t.Logf("%q -> %q still contains stripped characters", s, out)
				return false
			}
			return !strings.HasPrefix(out, ".") && !strings.HasSuffix(out, ".")
		},
		genHeaderText(),
	))

	properties.Property("question numbers lose Q, brackets, spaces and hyphens", prop.ForAll(
		func(s string) bool {
			return !strings.ContainsAny(CleanQuestionNumber(s), "Q[] -")
		},
		genHeaderText(),
	))

	properties.TestingRun(t)
}

// Property: strict and permissive modes agree on well-formed headers.
func TestStrictMatchesPermissiveOnWellFormedHeaders(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("strict mode accepts and matches permissive output", prop.ForAll(
		func(fields []string) bool {
			raw := strings.Join(fields, Separator)
			strict, err := New(ModeStrict).Normalize(raw)
			if err != nil {
				t.Logf("strict mode rejected %q: %v", raw, err)
				return false
			}
			return strict.Header == Normalize(raw)
		},
		gen.SliceOfN(5, genWellFormedField()),
	))

	properties.TestingRun(t)
}
