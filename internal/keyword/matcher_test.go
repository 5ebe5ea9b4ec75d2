package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user/harvest-service/internal/entity"
)

func kw(id, text string, active bool) entity.Keyword {
	return entity.Keyword{ID: id, Text: text, IsActive: active}
}

func TestMatchCaseInsensitiveSubstring(t *testing.T) {
	m := NewMatcher([]entity.Keyword{
		kw("k1", "inflasi", true),
		kw("k2", "Harga Beras", true),
		kw("k3", "banjir", true),
	})

	got := m.Match("INFLASI Naik", "Kenaikan harga beras memicu inflasi tahunan")
	assert.Equal(t, []string{"k1", "k2"}, got)
}

func TestMatchNoHitsReturnsNil(t *testing.T) {
	m := NewMatcher([]entity.Keyword{kw("k1", "inflasi", true)})
	assert.Nil(t, m.Match("Cuaca cerah", "tidak ada apa-apa"))
}

func TestMatchIgnoresInactiveAndBlank(t *testing.T) {
	m := NewMatcher([]entity.Keyword{
		kw("k1", "inflasi", false),
		kw("k2", "   ", true),
	})
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Match("inflasi", ""))
}

func TestMatchSubstringWithoutStemming(t *testing.T) {
	m := NewMatcher([]entity.Keyword{kw("k1", "ekspor", true), kw("k2", "mengimpor", true)})
	assert.Equal(t, []string{"k1"}, m.Match("Pemerintah mengekspor batu bara", ""))
	assert.Nil(t, m.Match("Volume impor naik", ""))
}

func TestMatchAcrossTitleBodyBoundaryIsSeparated(t *testing.T) {
	m := NewMatcher([]entity.Keyword{kw("k1", "ab", true)})
	assert.Nil(t, m.Match("xa", "bx"))
}

func TestMatchDuplicateTextsShareHits(t *testing.T) {
	m := NewMatcher([]entity.Keyword{
		kw("k1", "pajak", true),
		kw("k2", "PAJAK ", true),
	})
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []string{"k1", "k2"}, m.Match("", "reformasi pajak"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "inflasi", Normalize("  INFLASI "))
	assert.Equal(t, "harga beras", Normalize("Harga Beras"))
}
