package retailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sainsbury's", "sainsburys"},
		{"  Tesco ", "tesco"},
		{"M&S", "marksandspencer"},
		{"Marks and Spencer", "marksandspencer"},
		{"Co-op", "coop"},
		{"ocado.com", "ocado"},
		{"Some New Shop", "somenewshop"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestSortByPriority(t *testing.T) {
	got := SortByPriority([]string{"boots", "unknownshop", "tesco", "ocado"})
	require.Equal(t, []string{"tesco", "ocado", "boots", "unknownshop"}, got)
}

func TestSortByPriorityStableForUnlisted(t *testing.T) {
	got := SortByPriority([]string{"zzz", "aaa", "mmm"})
	assert.Equal(t, []string{"zzz", "aaa", "mmm"}, got)
}

func TestLookupUnknownGetsGenericProfile(t *testing.T) {
	p := Lookup("cornershop")
	assert.Equal(t, "cornershop", p.ID)
	assert.False(t, p.NeedsBrowserFallback)
	assert.NotZero(t, p.DefaultDelay)
	assert.NotZero(t, p.DefaultTimeout)
}

func TestIsRetailerName(t *testing.T) {
	assert.True(t, IsRetailerName("sainsburys", "Sainsbury's"))
	assert.True(t, IsRetailerName("marksandspencer", "M&S"))
	assert.True(t, IsRetailerName("tesco", "tesco"))
	assert.False(t, IsRetailerName("tesco", "Fresh Food"))
	assert.False(t, IsRetailerName("tesco", ""))
}

func TestURLInferenceIsOptIn(t *testing.T) {
	assert.True(t, Lookup("superdrug").URLHasCategoryPath)
	assert.True(t, Lookup("boots").URLHasCategoryPath)
	assert.False(t, Lookup("tesco").URLHasCategoryPath)
	assert.False(t, Lookup("ocado").URLHasCategoryPath)
}
