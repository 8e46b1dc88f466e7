package reason

// vendorTags maps each vendor-specific category tag to its normalized code.
// Screening vendors run two overlapping tag generations (a legacy set and a
// "v2" set), so several spellings collapse to the same code. The table is the
// single source of truth; do not scatter tag checks elsewhere.
var vendorTags = map[string]Code{
	// Sanctions lists.
	"sanction":              WatchlistHitOfac,
	"sdn":                   WatchlistHitOfac,
	"sanction-consolidated": WatchlistHitNonSdn,
	"warning":               WatchlistHitWarning,
	"fitness-probity":       WatchlistHitWarning,

	// Politically exposed persons, all classes.
	"pep":         WatchlistHitPep,
	"pep-class-1": WatchlistHitPep,
	"pep-class-2": WatchlistHitPep,
	"pep-class-3": WatchlistHitPep,
	"pep-class-4": WatchlistHitPep,

	// Adverse media, legacy tag set.
	"adverse-media":                 AdverseMediaHit,
	"adverse-media-financial-crime": AdverseMediaHit,
	"adverse-media-violent-crime":   AdverseMediaHit,
	"adverse-media-sexual-crime":    AdverseMediaHit,
	"adverse-media-cybercrime":      AdverseMediaHit,
	"adverse-media-terrorism":       AdverseMediaHit,
	"adverse-media-fraud":           AdverseMediaHit,
	"adverse-media-narcotics":       AdverseMediaHit,
	"adverse-media-general":         AdverseMediaHit,

	// Adverse media, v2 tag set.
	"adverse-media-v2-financial-aml-cft":      AdverseMediaHit,
	"adverse-media-v2-financial-difficulty":   AdverseMediaHit,
	"adverse-media-v2-violence-aml-cft":       AdverseMediaHit,
	"adverse-media-v2-violence-non-aml-cft":   AdverseMediaHit,
	"adverse-media-v2-sexual-crime":           AdverseMediaHit,
	"adverse-media-v2-cybercrime":             AdverseMediaHit,
	"adverse-media-v2-terrorism":              AdverseMediaHit,
	"adverse-media-v2-fraud-linked":           AdverseMediaHit,
	"adverse-media-v2-narcotics-aml-cft":      AdverseMediaHit,
	"adverse-media-v2-general-aml-cft":        AdverseMediaHit,
	"adverse-media-v2-other-serious":          AdverseMediaHit,
	"adverse-media-v2-other-minor":            AdverseMediaHit,
	"adverse-media-v2-property":               AdverseMediaHit,
	"adverse-media-v2-regulatory":             AdverseMediaHit,
}

// FromVendorTag resolves a vendor category tag to a normalized code. Vendors
// add new tag values without notice, so an unrecognized tag returns ok=false
// and the caller must log and skip rather than fail the normalization.
func FromVendorTag(tag string) (Code, bool) {
	code, ok := vendorTags[tag]
	return code, ok
}
