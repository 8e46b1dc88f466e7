// Package policy models the tenant-configurable AML screening policy: which
// watchlist categories count, how strict the match-kind filter is, and which
// adverse-media subcategories apply. Policies are immutable snapshots read by
// the normalizers; they are validated when authored, never at normalization.
package policy

import (
	dErrors "vouch/pkg/domain-errors"
)

// MatchKind is the required strictness for accepting a watchlist hit. The
// ordering is ranked: each level accepts everything the stricter levels accept
// plus its own additional match types.
type MatchKind int

const (
	MatchKindExactName MatchKind = iota
	MatchKindFuzzyHigh
	MatchKindFuzzyMedium
	MatchKindFuzzyLow
)

func (k MatchKind) String() string {
	switch k {
	case MatchKindExactName:
		return "exact_name"
	case MatchKindFuzzyHigh:
		return "fuzzy_high"
	case MatchKindFuzzyMedium:
		return "fuzzy_medium"
	case MatchKindFuzzyLow:
		return "fuzzy_low"
	default:
		return "unknown"
	}
}

// AcceptedMatchTypes returns the vendor match-type tags this strictness
// accepts. A hit passes when the intersection of its match types with this
// set is non-empty.
func (k MatchKind) AcceptedMatchTypes() map[string]struct{} {
	accepted := map[string]struct{}{"name_exact": {}}
	if k >= MatchKindFuzzyHigh {
		accepted["aka_exact"] = struct{}{}
		accepted["name_fuzzy"] = struct{}{}
	}
	if k >= MatchKindFuzzyMedium {
		accepted["aka_fuzzy"] = struct{}{}
		accepted["equivalent_name"] = struct{}{}
		accepted["equivalent_aka"] = struct{}{}
	}
	if k >= MatchKindFuzzyLow {
		accepted["phonetic_name"] = struct{}{}
		accepted["phonetic_aka"] = struct{}{}
	}
	return accepted
}

// Accepts reports whether any of the hit's match types satisfies this
// strictness.
func (k MatchKind) Accepts(matchTypes []string) bool {
	accepted := k.AcceptedMatchTypes()
	for _, mt := range matchTypes {
		if _, ok := accepted[mt]; ok {
			return true
		}
	}
	return false
}

// AdverseMediaList is an abstract adverse-media subcategory a tenant can
// restrict screening to.
type AdverseMediaList string

const (
	AdverseMediaFinancialCrime AdverseMediaList = "financial_crime"
	AdverseMediaViolentCrime   AdverseMediaList = "violent_crime"
	AdverseMediaSexualCrime    AdverseMediaList = "sexual_crime"
	AdverseMediaCyberCrime     AdverseMediaList = "cyber_crime"
	AdverseMediaTerrorism      AdverseMediaList = "terrorism"
	AdverseMediaFraud          AdverseMediaList = "fraud"
	AdverseMediaNarcotics      AdverseMediaList = "narcotics"
	AdverseMediaGeneralSerious AdverseMediaList = "general_serious"
	AdverseMediaGeneralMinor   AdverseMediaList = "general_minor"
)

// adverseMediaTags maps each abstract subcategory to the vendor tag spellings
// that belong to it. Vendors carry both a legacy and a v2 tag generation with
// overlapping semantics, so most lists hold more than one spelling.
var adverseMediaTags = map[AdverseMediaList][]string{
	AdverseMediaFinancialCrime: {"adverse-media-financial-crime", "adverse-media-v2-financial-aml-cft", "adverse-media-v2-financial-difficulty"},
	AdverseMediaViolentCrime:   {"adverse-media-violent-crime", "adverse-media-v2-violence-aml-cft", "adverse-media-v2-violence-non-aml-cft"},
	AdverseMediaSexualCrime:    {"adverse-media-sexual-crime", "adverse-media-v2-sexual-crime"},
	AdverseMediaCyberCrime:     {"adverse-media-cybercrime", "adverse-media-v2-cybercrime"},
	AdverseMediaTerrorism:      {"adverse-media-terrorism", "adverse-media-v2-terrorism"},
	AdverseMediaFraud:          {"adverse-media-fraud", "adverse-media-v2-fraud-linked"},
	AdverseMediaNarcotics:      {"adverse-media-narcotics", "adverse-media-v2-narcotics-aml-cft"},
	AdverseMediaGeneralSerious: {"adverse-media", "adverse-media-general", "adverse-media-v2-general-aml-cft", "adverse-media-v2-other-serious", "adverse-media-v2-regulatory"},
	AdverseMediaGeneralMinor:   {"adverse-media-v2-other-minor", "adverse-media-v2-property"},
}

// VendorTags resolves the subcategory to its vendor tag spellings.
func (l AdverseMediaList) VendorTags() []string {
	return adverseMediaTags[l]
}

// AmlPolicy is one tenant's AML screening configuration. Zero value means
// screening disabled.
type AmlPolicy struct {
	// Enhanced gates the entire watchlist pipeline. When false no watchlist
	// reason codes are ever produced, regardless of hit contents.
	Enhanced bool

	Ofac         bool
	Pep          bool
	AdverseMedia bool

	// AdverseMediaLists restricts adverse-media screening to specific
	// subcategories. nil means no restriction (all categories). A non-nil
	// empty slice means no subcategory is selected, which yields zero
	// adverse-media codes even with AdverseMedia enabled.
	AdverseMediaLists *[]AdverseMediaList

	MatchKind MatchKind
}

// Validate enforces authoring-time constraints. It is not called during
// normalization; a policy that reaches a normalizer is assumed valid.
func (p AmlPolicy) Validate() error {
	if p.Enhanced && !p.Ofac && !p.Pep && !p.AdverseMedia {
		return dErrors.New(dErrors.CodeValidation, "enhanced aml requires at least one of ofac, pep, or adverse media")
	}
	if p.AdverseMediaLists != nil && !p.AdverseMedia {
		return dErrors.New(dErrors.CodeValidation, "adverse media lists configured but adverse media screening is disabled")
	}
	return nil
}

// AdverseMediaTagAllowed reports whether the originating vendor tag survives
// the configured subcategory restriction.
func (p AmlPolicy) AdverseMediaTagAllowed(tag string) bool {
	if p.AdverseMediaLists == nil {
		return true
	}
	for _, list := range *p.AdverseMediaLists {
		for _, allowed := range list.VendorTags() {
			if allowed == tag {
				return true
			}
		}
	}
	return false
}
