package limiter

import "time"

// Rule bounds how many requests one identifier may make inside a trailing window.
// Limit requests are allowed per Window; request Limit+1 is rejected.
type Rule struct {
	Limit  int
	Window time.Duration
}

var (
	// RegisterRule guards account registration.
	RegisterRule = Rule{Limit: 10, Window: time.Minute}
	// PasswordResetRule guards password reset requests and completions.
	PasswordResetRule = Rule{Limit: 15, Window: time.Minute}
	// SignInRule throttles password guessing on credentials sign-in. It is
	// applied to its own per-client window.
	SignInRule = Rule{Limit: 10, Window: time.Minute}
)

// Rules lists every rule the router enforces.
var Rules = []Rule{RegisterRule, PasswordResetRule, SignInRule}

// LongestWindow is the shortest retention a sweep may use without evicting
// timestamps that still count toward a limit.
func LongestWindow(rules ...Rule) time.Duration {
	if len(rules) == 0 {
		rules = Rules
	}
	var longest time.Duration
	for _, r := range rules {
		if r.Window > longest {
			longest = r.Window
		}
	}
	return longest
}

// Valid reports whether the rule can be enforced.
func (r Rule) Valid() bool {
	return r.Limit > 0 && r.Window > 0
}
