package waterfall

import "vouch/internal/reason"

// Rule decides whether a vendor's normalized result is usable as the chosen
// waterfall outcome. A disqualified result is not an error: the attempt is
// recorded as a non-error success and the next vendor is tried.
type Rule struct {
	disqualifying map[reason.Code]struct{}
}

// NewRule builds an acceptance rule that disqualifies on any of the given
// codes.
func NewRule(disqualifying ...reason.Code) Rule {
	set := make(map[reason.Code]struct{}, len(disqualifying))
	for _, c := range disqualifying {
		set[c] = struct{}{}
	}
	return Rule{disqualifying: set}
}

// DefaultRule disqualifies on an SSN mismatch, the tenant-default automatic
// disqualifier for identity verification.
func DefaultRule() Rule {
	return NewRule(reason.SsnDoesNotMatch)
}

// Passes reports whether no disqualifying code is present.
func (r Rule) Passes(codes []reason.Code) bool {
	for _, c := range codes {
		if _, ok := r.disqualifying[c]; ok {
			return false
		}
	}
	return true
}
