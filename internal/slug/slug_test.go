package slug

import (
	"regexp"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9-]*$`)
	alnumPattern = regexp.MustCompile(`^[a-z0-9]*$`)
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple", input: "Brake Pads", expected: "brake-pads"},
		{name: "trims", input: "  Oil Filter  ", expected: "oil-filter"},
		{name: "whitespace runs", input: "Spark \t\n Plug", expected: "spark-plug"},
		{name: "strips punctuation", input: "O-Ring (10mm)", expected: "o-ring-10mm"},
		{name: "collapses hyphens", input: "A -- B", expected: "a-b"},
		{name: "drops non ascii", input: "Café Racer", expected: "caf-racer"},
		{name: "keeps edge hyphen", input: "-Gasket", expected: "-gasket"},
		{name: "only symbols", input: "!!!", expected: ""},
		{name: "empty", input: "", expected: ""},
		{name: "digits", input: "ABC 1", expected: "abc-1"},
		{name: "already slug", input: "abc-1", expected: "abc-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "discbrakekit", Key("disc-brake-kit"))
	assert.Equal(t, "", Key(""))
	assert.Equal(t, "nutsbolts", Key(Slugify("Nuts/Bolts")))
	assert.Equal(t, Key(Slugify("Nuts Bolts")), Key(Slugify("Nuts/Bolts")))
	assert.Equal(t, "obrien", Key(Slugify("O'Brien")))
}

func TestSlugifyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("idempotent", prop.ForAll(
		func(s string) bool {
			once := Slugify(s)
			return Slugify(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("output alphabet", prop.ForAll(
		func(s string) bool {
			return slugPattern.MatchString(Slugify(s))
		},
		gen.AnyString(),
	))

	properties.Property("no repeated hyphens", prop.ForAll(
		func(s string) bool {
			out := Slugify(s)
			for i := 1; i < len(out); i++ {
				if out[i] == '-' && out[i-1] == '-' {
					return false
				}
			}
			return true
		},
		gen.OneGenOf(gen.AnyString(), gen.RegexMatch(`[A-Za-z0-9 \-_.!]{0,40}`)),
	))

	properties.Property("key keeps only lower-cased alphanumerics", prop.ForAll(
		func(s string) bool {
			return alnumPattern.MatchString(Key(Slugify(s)))
		},
		gen.AnyString(),
	))

	properties.Property("key ignores case and punctuation", prop.ForAll(
		func(s string) bool {
			return Key(Slugify(s)) == Key(Slugify(strings.ToUpper(s)+"!"))
		},
		gen.RegexMatch(`[A-Za-z0-9 ./'_-]{0,40}`),
	))

	properties.TestingRun(t)
}
