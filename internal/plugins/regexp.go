package plugins

import (
	"time"

	"github.com/dlclark/regexp2"
)

const matchTimeout = time.Second

// Regexp is a Matcher backed by regexp2, which supports the lookahead
// assertions the standard library omits, e.g. ^(?!MyLib).
type Regexp struct {
	re *regexp2.Regexp
}

func CompileRegexp(pattern string) (*Regexp, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	return &Regexp{re: re}, nil
}

func MustCompileRegexp(pattern string) *Regexp {
	re, err := CompileRegexp(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// NotPrefix matches every name that does not start with prefix.
func NotPrefix(prefix string) *Regexp {
	return MustCompileRegexp("^(?!" + regexp2.Escape(prefix) + ")")
}

// MatchString reports a match. A match that times out counts as no match.
func (r *Regexp) MatchString(s string) bool {
	ok, err := r.re.MatchString(s)
	return err == nil && ok
}

func (r *Regexp) String() string {
	return r.re.String()
}
