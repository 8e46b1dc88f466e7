package normalize

import (
	"log/slog"

	"vouch/internal/policy"
	"vouch/internal/reason"
	"vouch/internal/vendor"
)

// FromResponse dispatches a parsed vendor response to the matching normalizer.
// A response with no recognized payload yields no codes; that is the safest
// documented default for an internally-inconsistent structure.
func FromResponse(resp vendor.Response, pol policy.AmlPolicy, submitted vendor.SubmittedFields, logic MatchLogic, log *slog.Logger) []reason.Code {
	switch {
	case resp.Watchlist != nil:
		return FromWatchlist(*resp.Watchlist, pol, log)
	case resp.MatchSummary != nil:
		return FromMatchSummary(*resp.MatchSummary, submitted, logic, log)
	case resp.DocScan != nil:
		return FromDocScan(*resp.DocScan)
	default:
		return nil
	}
}
