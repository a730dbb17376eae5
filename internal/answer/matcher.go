// Package answer decides whether a chat message answers a question.
package answer

import (
	"math"
	"strings"

	"github.com/victornm/trivia/internal/domain"
)

const DefaultThreshold = 90

// Matcher compares guesses against a question's accepted answers. It holds no
// state besides its threshold and is safe for concurrent use.
type Matcher struct {
	threshold int
}

// NewMatcher returns a Matcher accepting fuzzy guesses whose similarity ratio
// is at least threshold (0-100). A non-positive threshold selects
// DefaultThreshold.
func NewMatcher(threshold int) *Matcher {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultThreshold
	}

	return &Matcher{threshold: threshold}
}

// Evaluate returns the first accepted answer, in list order, that equals the
// normalized guess or, for fuzzy questions, is similar enough to it.
func (m *Matcher) Evaluate(q domain.Question, raw string) (string, bool) {
	guess := normalize(q.Modifier, raw)

	for _, a := range q.Answers {
		want := normalize(q.Modifier, a)
		if want == guess || (q.Fuzzy && Ratio(want, guess) >= m.threshold) {
			return a, true
		}
	}

	return "", false
}

func normalize(modifier func(string) string, s string) string {
	if modifier != nil {
		s = modifier(s)
	}

	return strings.TrimSpace(strings.ToLower(s))
}

// Ratio returns the similarity of a and b on a 0-100 scale, counting only
// insertions and deletions: 2*LCS / (len(a)+len(b)), rounded, lengths in
// runes. A substitution therefore costs two edits.
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}

	return int(math.Round(100 * float64(2*lcs(ra, rb)) / float64(total)))
}

// lcs is the length of the longest common subsequence of a and b.
func lcs(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}

	return prev[len(b)]
}
