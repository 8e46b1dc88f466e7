package reason

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromVendorTag(t *testing.T) {
	t.Run("recognized sanctions tag", func(t *testing.T) {
		code, ok := FromVendorTag("sanction")
		assert.True(t, ok)
		assert.Equal(t, WatchlistHitOfac, code)
	})

	t.Run("pep classes collapse to one code", func(t *testing.T) {
		for _, tag := range []string{"pep", "pep-class-1", "pep-class-2", "pep-class-3", "pep-class-4"} {
			code, ok := FromVendorTag(tag)
			assert.True(t, ok, tag)
			assert.Equal(t, WatchlistHitPep, code, tag)
		}
	})

	t.Run("legacy and v2 adverse media map to the same code", func(t *testing.T) {
		legacy, ok := FromVendorTag("adverse-media-fraud")
		assert.True(t, ok)
		v2, ok2 := FromVendorTag("adverse-media-v2-fraud-linked")
		assert.True(t, ok2)
		assert.Equal(t, legacy, v2)
	})

	t.Run("unrecognized tag returns not ok", func(t *testing.T) {
		_, ok := FromVendorTag("brand-new-vendor-tag")
		assert.False(t, ok)
	})
}

func TestCodePredicates(t *testing.T) {
	assert.True(t, WatchlistHitOfac.IsWatchlist())
	assert.False(t, WatchlistHitOfac.IsPEP())
	assert.True(t, WatchlistHitPep.IsPEP())
	assert.False(t, WatchlistHitPep.IsWatchlist())
	assert.True(t, AdverseMediaHit.IsAdverseMedia())
	assert.False(t, SsnDoesNotMatch.IsWatchlist())

	assert.Equal(t, SeverityHigh, SsnDoesNotMatch.Severity())
	assert.Equal(t, CategoryWatchlist, AdverseMediaHit.Category())
	assert.True(t, NameMatches.IsValid())
	assert.False(t, Code("nonsense").IsValid())
}

func TestDedupe(t *testing.T) {
	codes := []Code{WatchlistHitOfac, SsnMatches, WatchlistHitOfac, SsnMatches, NameMatches}
	assert.Equal(t, []Code{WatchlistHitOfac, SsnMatches, NameMatches}, Dedupe(codes))
}
