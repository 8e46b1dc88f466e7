package normalize

import (
	"context"
	"log/slog"

	"vouch/internal/reason"
	"vouch/internal/vendor"
)

// MatchLogic is the swappable strategy for turning a bureau match summary into
// per-field reason codes. The active implementation is selected via
// configuration, not inheritance; keeping it an interface lets a tenant run
// the newer risk-indicator-only evaluation side by side with the current one.
type MatchLogic interface {
	NameCodes(s vendor.MatchSummary) []reason.Code
	AddressCode(s vendor.MatchSummary, log *slog.Logger) reason.Code
	SsnCode(s vendor.MatchSummary, log *slog.Logger) reason.Code
	PhoneCode(s vendor.MatchSummary, log *slog.Logger) reason.Code
	DobCodes(s vendor.MatchSummary) []reason.Code
}

// FromMatchSummary maps a credit bureau match summary to reason codes.
// SSN and phone codes are only emitted when the applicant actually submitted
// the field; absence of input must not read as "does not match".
func FromMatchSummary(s vendor.MatchSummary, submitted vendor.SubmittedFields, logic MatchLogic, log *slog.Logger) []reason.Code {
	var codes []reason.Code

	codes = append(codes, logic.NameCodes(s)...)
	codes = append(codes, logic.AddressCode(s, log))
	if submitted.Ssn != "" {
		codes = append(codes, logic.SsnCode(s, log))
	}
	if submitted.Phone != "" {
		codes = append(codes, logic.PhoneCode(s, log))
	}
	codes = append(codes, logic.DobCodes(s)...)

	return reason.Dedupe(codes)
}

// CurrentMatchLogic combines the coarse match-summary level with the finer
// risk-indicator flags that mark a match as a near miss.
type CurrentMatchLogic struct{}

// NameCodes applies the three-way tie-break: both sub-checks pass means a
// match, both fail means no match, any other combination (including a partial
// last-name flag) is a partial match.
func (CurrentMatchLogic) NameCodes(s vendor.MatchSummary) []reason.Code {
	switch {
	case s.FirstNameMatches && s.LastNameMatches && !s.LastNamePartial:
		return []reason.Code{reason.NameMatches}
	case !s.FirstNameMatches && !s.LastNameMatches && !s.LastNamePartial:
		return []reason.Code{reason.NameDoesNotMatch}
	default:
		return []reason.Code{reason.NamePartiallyMatches}
	}
}

func (CurrentMatchLogic) AddressCode(s vendor.MatchSummary, log *slog.Logger) reason.Code {
	return levelWithIndicator(s.AddressMatch, s.AddressPartialFlag, log, "address",
		reason.AddressMatches, reason.AddressPartiallyMatches, reason.AddressDoesNotMatch)
}

func (CurrentMatchLogic) SsnCode(s vendor.MatchSummary, log *slog.Logger) reason.Code {
	return levelWithIndicator(s.SsnMatch, s.SsnPartialFlag, log, "ssn",
		reason.SsnMatches, reason.SsnPartiallyMatches, reason.SsnDoesNotMatch)
}

func (CurrentMatchLogic) PhoneCode(s vendor.MatchSummary, log *slog.Logger) reason.Code {
	if s.PhoneMatch == vendor.MatchLevelNone && s.PhonePartialFlag {
		logAnomaly(log, "phone")
	}
	if s.PhoneMatch == vendor.MatchLevelFull && !s.PhonePartialFlag {
		return reason.PhoneMatches
	}
	return reason.PhoneDoesNotMatch
}

func (CurrentMatchLogic) DobCodes(s vendor.MatchSummary) []reason.Code {
	if s.DobMissing {
		return []reason.Code{reason.DobCouldNotMatch}
	}
	switch s.DobMatch {
	case vendor.MatchLevelFull:
		if s.DobYearOnlyReported {
			return []reason.Code{reason.DobPartiallyMatches}
		}
		return []reason.Code{reason.DobMatches}
	case vendor.MatchLevelPartial:
		return []reason.Code{reason.DobPartiallyMatches}
	default:
		return []reason.Code{reason.DobDoesNotMatch}
	}
}

// RiskIndicatorsOnly ignores the coarse level except for hard misses and
// trusts the risk-indicator flags alone to distinguish clean from near-miss.
type RiskIndicatorsOnly struct{}

func (RiskIndicatorsOnly) NameCodes(s vendor.MatchSummary) []reason.Code {
	return CurrentMatchLogic{}.NameCodes(s)
}

func (RiskIndicatorsOnly) AddressCode(s vendor.MatchSummary, log *slog.Logger) reason.Code {
	return indicatorOnly(s.AddressMatch, s.AddressPartialFlag,
		reason.AddressMatches, reason.AddressPartiallyMatches, reason.AddressDoesNotMatch)
}

func (RiskIndicatorsOnly) SsnCode(s vendor.MatchSummary, log *slog.Logger) reason.Code {
	return indicatorOnly(s.SsnMatch, s.SsnPartialFlag,
		reason.SsnMatches, reason.SsnPartiallyMatches, reason.SsnDoesNotMatch)
}

func (RiskIndicatorsOnly) PhoneCode(s vendor.MatchSummary, log *slog.Logger) reason.Code {
	return CurrentMatchLogic{}.PhoneCode(s, log)
}

func (RiskIndicatorsOnly) DobCodes(s vendor.MatchSummary) []reason.Code {
	return CurrentMatchLogic{}.DobCodes(s)
}

// levelWithIndicator resolves a coarse level plus near-miss flag into a code.
// The combination level=none with the partial flag set is an observed vendor
// anomaly; it is logged and resolved conservatively to the partial code
// rather than rejected, pending vendor clarification.
func levelWithIndicator(level vendor.MatchLevel, partialFlag bool, log *slog.Logger, field string, full, partial, none reason.Code) reason.Code {
	switch level {
	case vendor.MatchLevelFull:
		if partialFlag {
			return partial
		}
		return full
	case vendor.MatchLevelPartial:
		return partial
	default:
		if partialFlag {
			logAnomaly(log, field)
			return partial
		}
		return none
	}
}

func indicatorOnly(level vendor.MatchLevel, partialFlag bool, full, partial, none reason.Code) reason.Code {
	if level == vendor.MatchLevelNone {
		return none
	}
	if partialFlag {
		return partial
	}
	return full
}

func logAnomaly(log *slog.Logger, field string) {
	if log == nil {
		return
	}
	log.ErrorContext(context.Background(), "unexpected match summary combination",
		"field", field, "detail", "no match reported with partial indicator set")
}
