package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "vouch/pkg/domain-errors"
)

func TestMatchKindMonotonicity(t *testing.T) {
	// Anything accepted at a stricter level stays accepted as strictness
	// relaxes.
	kinds := []MatchKind{MatchKindExactName, MatchKindFuzzyHigh, MatchKindFuzzyMedium, MatchKindFuzzyLow}

	for i := 1; i < len(kinds); i++ {
		stricter := kinds[i-1].AcceptedMatchTypes()
		looser := kinds[i].AcceptedMatchTypes()
		for mt := range stricter {
			_, ok := looser[mt]
			assert.True(t, ok, "%s accepted by %s but not by %s", mt, kinds[i-1], kinds[i])
		}
		assert.Greater(t, len(looser), len(stricter))
	}

	for _, k := range kinds {
		assert.True(t, k.Accepts([]string{"name_exact"}), k.String())
	}
}

func TestMatchKindAccepts(t *testing.T) {
	tests := []struct {
		name       string
		kind       MatchKind
		matchTypes []string
		want       bool
	}{
		{"exact rejects fuzzy", MatchKindExactName, []string{"name_fuzzy"}, false},
		{"exact rejects aka", MatchKindExactName, []string{"aka_exact"}, false},
		{"fuzzy high accepts aka exact", MatchKindFuzzyHigh, []string{"aka_exact"}, true},
		{"fuzzy high rejects aka fuzzy", MatchKindFuzzyHigh, []string{"aka_fuzzy"}, false},
		{"fuzzy medium accepts equivalent name", MatchKindFuzzyMedium, []string{"equivalent_name"}, true},
		{"fuzzy medium rejects phonetic", MatchKindFuzzyMedium, []string{"phonetic_name"}, false},
		{"fuzzy low accepts phonetic aka", MatchKindFuzzyLow, []string{"phonetic_aka"}, true},
		{"non-empty intersection is enough", MatchKindExactName, []string{"phonetic_name", "name_exact"}, true},
		{"empty match types never pass", MatchKindFuzzyLow, nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.kind.Accepts(tc.matchTypes))
		})
	}
}

func TestAmlPolicyValidate(t *testing.T) {
	t.Run("enhanced with no categories is rejected", func(t *testing.T) {
		err := AmlPolicy{Enhanced: true}.Validate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("sublist without adverse media is rejected", func(t *testing.T) {
		lists := []AdverseMediaList{AdverseMediaFraud}
		err := AmlPolicy{Enhanced: true, Ofac: true, AdverseMediaLists: &lists}.Validate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("disabled policy is valid", func(t *testing.T) {
		assert.NoError(t, AmlPolicy{}.Validate())
	})

	t.Run("full policy is valid", func(t *testing.T) {
		lists := []AdverseMediaList{AdverseMediaFraud, AdverseMediaTerrorism}
		p := AmlPolicy{Enhanced: true, Ofac: true, Pep: true, AdverseMedia: true, AdverseMediaLists: &lists}
		assert.NoError(t, p.Validate())
	})
}

func TestAdverseMediaTagAllowed(t *testing.T) {
	t.Run("nil list allows everything", func(t *testing.T) {
		p := AmlPolicy{AdverseMedia: true}
		assert.True(t, p.AdverseMediaTagAllowed("adverse-media-fraud"))
	})

	t.Run("empty explicit list allows nothing", func(t *testing.T) {
		lists := []AdverseMediaList{}
		p := AmlPolicy{AdverseMedia: true, AdverseMediaLists: &lists}
		assert.False(t, p.AdverseMediaTagAllowed("adverse-media-fraud"))
	})

	t.Run("restricted list allows both tag generations", func(t *testing.T) {
		lists := []AdverseMediaList{AdverseMediaFraud}
		p := AmlPolicy{AdverseMedia: true, AdverseMediaLists: &lists}
		assert.True(t, p.AdverseMediaTagAllowed("adverse-media-fraud"))
		assert.True(t, p.AdverseMediaTagAllowed("adverse-media-v2-fraud-linked"))
		assert.False(t, p.AdverseMediaTagAllowed("adverse-media-narcotics"))
	})
}
