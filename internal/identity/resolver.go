package identity

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// MaxEdits is the edit budget for a fuzzy name match.
const MaxEdits = 2

// Position is a screen position of an on-screen participant.
type Position string

const (
	Unknown Position = ""
	Left    Position = "left"
	Right   Position = "right"
)

// Method names the rule that decided an assignment.
type Method string

const (
	MethodNone  Method = ""
	MethodFuzzy Method = "fuzzy"
	MethodExact Method = "exact"
)

// Assignment is the outcome of resolving the uploader among two on-screen names.
// It is always returned; an ambiguous assignment keeps left as side A.
type Assignment struct {
	Uploader     Position
	Method       Method
	LeftMatched  bool
	RightMatched bool
}

// Ambiguous reports whether no rule could locate the uploader.
func (a Assignment) Ambiguous() bool { return a.Uploader == Unknown }

// UploaderIsRight reports whether sides must be swapped so the uploader becomes side A.
func (a Assignment) UploaderIsRight() bool { return a.Uploader == Right }

// Normalize strips every non letter/digit rune and lower-cases the rest.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// FuzzyMatch reports whether two names are within MaxEdits after normalization.
func FuzzyMatch(a, b string) bool {
	return levenshtein.ComputeDistance(Normalize(a), Normalize(b)) <= MaxEdits
}

// Resolve locates the registered uploader name among the left and right OCR names.
// Exactly one fuzzy hit decides; otherwise a case-insensitive exact comparison is
// tried left first; otherwise the assignment is ambiguous.
func Resolve(left, right, registered string) Assignment {
	if Normalize(registered) == "" {
		return Assignment{}
	}
	a := Assignment{
		LeftMatched:  FuzzyMatch(left, registered),
		RightMatched: FuzzyMatch(right, registered),
	}
	switch {
	case a.LeftMatched && !a.RightMatched:
		a.Uploader, a.Method = Left, MethodFuzzy
		return a
	case a.RightMatched && !a.LeftMatched:
		a.Uploader, a.Method = Right, MethodFuzzy
		return a
	}

	want := strings.ToLower(strings.TrimSpace(registered))
	switch {
	case strings.ToLower(strings.TrimSpace(left)) == want:
		a.Uploader, a.Method = Left, MethodExact
	case strings.ToLower(strings.TrimSpace(right)) == want:
		a.Uploader, a.Method = Right, MethodExact
	}
	return a
}
