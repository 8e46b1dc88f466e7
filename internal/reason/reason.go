// Package reason defines the closed vocabulary of normalized verification
// outcomes. Every vendor response, regardless of the vendor's own taxonomy,
// is reduced to a set of these codes before anything downstream sees it.
package reason

// Code is one normalized outcome label. Values are stable and versioned;
// adding a code is backwards compatible, renaming one is not.
type Code string

const (
	NameMatches          Code = "name_matches"
	NamePartiallyMatches Code = "name_partially_matches"
	NameDoesNotMatch     Code = "name_does_not_match"

	AddressMatches          Code = "address_matches"
	AddressPartiallyMatches Code = "address_partially_matches"
	AddressDoesNotMatch     Code = "address_does_not_match"

	SsnMatches          Code = "ssn_matches"
	SsnPartiallyMatches Code = "ssn_partially_matches"
	SsnDoesNotMatch     Code = "ssn_does_not_match"

	PhoneMatches      Code = "phone_matches"
	PhoneDoesNotMatch Code = "phone_does_not_match"

	DobMatches          Code = "dob_matches"
	DobPartiallyMatches Code = "dob_partially_matches"
	DobDoesNotMatch     Code = "dob_does_not_match"
	DobCouldNotMatch    Code = "dob_could_not_match"

	WatchlistHitOfac    Code = "watchlist_hit_ofac"
	WatchlistHitNonSdn  Code = "watchlist_hit_non_sdn"
	WatchlistHitWarning Code = "watchlist_hit_warning"
	WatchlistHitPep     Code = "watchlist_hit_pep"
	AdverseMediaHit     Code = "adverse_media_hit"

	DocumentVerified         Code = "document_verified"
	DocumentNotVerified      Code = "document_not_verified"
	DocumentOcrLowConfidence Code = "document_ocr_low_confidence"
)

// Severity ranks how alarming a code is on its own.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Category groups codes by the check that produced them.
type Category string

const (
	CategoryIdentity  Category = "identity"
	CategoryWatchlist Category = "watchlist"
	CategoryDocument  Category = "document"
	CategoryPhone     Category = "phone"
)

type meta struct {
	severity     Severity
	category     Category
	watchlist    bool
	pep          bool
	adverseMedia bool
}

// metadata is the single source of truth for per-code attributes. Keep the
// table flat; downstream predicates read it rather than switching on codes.
var metadata = map[Code]meta{
	NameMatches:          {severity: SeverityInfo, category: CategoryIdentity},
	NamePartiallyMatches: {severity: SeverityLow, category: CategoryIdentity},
	NameDoesNotMatch:     {severity: SeverityHigh, category: CategoryIdentity},

	AddressMatches:          {severity: SeverityInfo, category: CategoryIdentity},
	AddressPartiallyMatches: {severity: SeverityLow, category: CategoryIdentity},
	AddressDoesNotMatch:     {severity: SeverityMedium, category: CategoryIdentity},

	SsnMatches:          {severity: SeverityInfo, category: CategoryIdentity},
	SsnPartiallyMatches: {severity: SeverityMedium, category: CategoryIdentity},
	SsnDoesNotMatch:     {severity: SeverityHigh, category: CategoryIdentity},

	PhoneMatches:      {severity: SeverityInfo, category: CategoryPhone},
	PhoneDoesNotMatch: {severity: SeverityLow, category: CategoryPhone},

	DobMatches:          {severity: SeverityInfo, category: CategoryIdentity},
	DobPartiallyMatches: {severity: SeverityLow, category: CategoryIdentity},
	DobDoesNotMatch:     {severity: SeverityHigh, category: CategoryIdentity},
	DobCouldNotMatch:    {severity: SeverityMedium, category: CategoryIdentity},

	WatchlistHitOfac:    {severity: SeverityHigh, category: CategoryWatchlist, watchlist: true},
	WatchlistHitNonSdn:  {severity: SeverityMedium, category: CategoryWatchlist, watchlist: true},
	WatchlistHitWarning: {severity: SeverityMedium, category: CategoryWatchlist, watchlist: true},
	WatchlistHitPep:     {severity: SeverityMedium, category: CategoryWatchlist, pep: true},
	AdverseMediaHit:     {severity: SeverityMedium, category: CategoryWatchlist, adverseMedia: true},

	DocumentVerified:         {severity: SeverityInfo, category: CategoryDocument},
	DocumentNotVerified:      {severity: SeverityHigh, category: CategoryDocument},
	DocumentOcrLowConfidence: {severity: SeverityLow, category: CategoryDocument},
}

// IsValid reports whether c belongs to the closed vocabulary.
func (c Code) IsValid() bool {
	_, ok := metadata[c]
	return ok
}

func (c Code) Severity() Severity {
	return metadata[c].severity
}

func (c Code) Category() Category {
	return metadata[c].category
}

// IsWatchlist reports whether the code represents a sanctions-list hit.
func (c Code) IsWatchlist() bool {
	return metadata[c].watchlist
}

// IsPEP reports whether the code represents a politically-exposed-person hit.
func (c Code) IsPEP() bool {
	return metadata[c].pep
}

// IsAdverseMedia reports whether the code represents an adverse-media hit.
func (c Code) IsAdverseMedia() bool {
	return metadata[c].adverseMedia
}

func (c Code) String() string {
	return string(c)
}

// Dedupe returns codes with duplicates removed, preserving first-seen order.
func Dedupe(codes []Code) []Code {
	seen := make(map[Code]struct{}, len(codes))
	out := make([]Code, 0, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
