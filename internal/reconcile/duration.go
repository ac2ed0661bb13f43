package reconcile

import (
	"regexp"
	"strconv"
)

var (
	minutesPattern = regexp.MustCompile(`(?i)(\d+)\s*min(?:s|utes)?`)
	clockPattern   = regexp.MustCompile(`(\d+):(\d{1,2})(?::\d{1,2})?`)
	digitsPattern  = regexp.MustCompile(`(\d+)`)
)

// ParseDuration normalizes the duration cell of a meeting export into whole
// minutes. Exports disagree on format ("35 mins", "01:15:00", bare "42"), so
// patterns are tried in that order; anything unparseable is 0 rather than an
// error.
func ParseDuration(s string) int {
	if s == "" {
		return 0
	}
	if m := minutesPattern.FindStringSubmatch(s); m != nil {
		return atoi(m[1])
	}
	if m := clockPattern.FindStringSubmatch(s); m != nil {
		// H:MM[:SS] — seconds never count toward the total.
		return atoi(m[1])*60 + atoi(m[2])
	}
	if m := digitsPattern.FindStringSubmatch(s); m != nil {
		return atoi(m[1])
	}
	return 0
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
