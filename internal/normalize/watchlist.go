// Package normalize translates parsed vendor responses into reason codes under
// tenant policy. Normalizers are pure, deterministic, and total over malformed
// input: missing optional fields fall back to the documented default, never a
// panic, and unrecognized vendor vocabulary is logged and skipped.
package normalize

import (
	"context"
	"log/slog"

	"vouch/internal/policy"
	"vouch/internal/reason"
	"vouch/internal/vendor"
	pkgstrings "vouch/pkg/platform/strings"
)

// watchlistScoreCeiling excludes weak candidate matches. The screening
// vendor's convention is inverted: lower score means a stronger match. This is
// a business threshold, not tenant policy, so it is fixed here.
const watchlistScoreCeiling = 10.0

// FromWatchlist maps a screening vendor's hit list to reason codes.
//
// A hit must survive three independent filters before its category tags are
// mapped: the score ceiling, the policy's match-kind strictness, and a name
// equality check against the echoed search term. The resulting codes are then
// filtered by the policy's category enable flags.
func FromWatchlist(result vendor.WatchlistResult, pol policy.AmlPolicy, log *slog.Logger) []reason.Code {
	if !pol.Enhanced {
		return nil
	}

	// The search-term echo is part of the vendor contract. When it is absent
	// we fail open on the name filter rather than silently dropping real
	// hits; the ambiguity is logged for follow-up.
	var searchTerm string
	checkName := result.SearchTerm != nil
	if checkName {
		searchTerm = *result.SearchTerm
	} else if log != nil {
		log.ErrorContext(context.Background(), "watchlist response missing search term echo, name filter failing open")
	}

	// tagsByCode remembers which vendor tags produced each code so the
	// adverse-media sub-list restriction can filter on the originating tag.
	tagsByCode := make(map[reason.Code][]string)
	var ordered []reason.Code

	for _, hit := range result.Hits {
		if hit.Score >= watchlistScoreCeiling {
			continue
		}
		if !pol.MatchKind.Accepts(hit.MatchTypes) {
			continue
		}
		if checkName && !namesEqual(searchTerm, hit.Name) {
			continue
		}

		// Tag spellings drift across vendor tag generations; fold them to the
		// lowercase vocabulary before lookup.
		for _, tag := range pkgstrings.DedupeAndTrimLower(hit.Categories) {
			code, ok := reason.FromVendorTag(tag)
			if !ok {
				if log != nil {
					log.WarnContext(context.Background(), "unrecognized watchlist category tag", "tag", tag)
				}
				continue
			}
			if _, seen := tagsByCode[code]; !seen {
				ordered = append(ordered, code)
			}
			tagsByCode[code] = append(tagsByCode[code], tag)
		}
	}

	out := make([]reason.Code, 0, len(ordered))
	for _, code := range ordered {
		if !codeAllowedByPolicy(code, tagsByCode[code], pol) {
			continue
		}
		out = append(out, code)
	}
	return out
}

func codeAllowedByPolicy(code reason.Code, originTags []string, pol policy.AmlPolicy) bool {
	switch {
	case code.IsWatchlist():
		return pol.Ofac
	case code.IsPEP():
		return pol.Pep
	case code.IsAdverseMedia():
		if !pol.AdverseMedia {
			return false
		}
		for _, tag := range originTags {
			if pol.AdverseMediaTagAllowed(tag) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
