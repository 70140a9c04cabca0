package claims_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-claims-checker/internal/claims"
	"github.com/feral-file/ff-claims-checker/internal/domain"
)

func claim(address string, index int, song, frame string) domain.ClaimableAddress {
	return domain.ClaimableAddress{Address: address, Claimable: true, ClaimIndex: index, Quantity: 1, Song: song, Frame: frame}
}

func TestFingerprint(t *testing.T) {
	fp, err := claims.Fingerprint(claim("0x111", 1, "Corner Tap", ""))
	require.NoError(t, err)
	assert.Equal(t, `{"address":"0x111","claimIndex":1,"claimable":true,"quantity":1,"song":"Corner Tap"}`, fp)

	other, err := claims.Fingerprint(claim("0x111", 1, "", "Corner Tap"))
	require.NoError(t, err)
	assert.NotEqual(t, fp, other)
}

func TestHasChanged(t *testing.T) {
	a := claim("0x111", 1, "Jim Bristol", "")
	b := claim("0x222", 2, "", "Red")

	tests := []struct {
		name     string
		previous []domain.ClaimableAddress
		current  []domain.ClaimableAddress
		want     bool
	}{
		{name: "both empty", want: false},
		{name: "nil vs empty", previous: nil, current: []domain.ClaimableAddress{}, want: false},
		{name: "same list", previous: []domain.ClaimableAddress{a, b}, current: []domain.ClaimableAddress{a, b}, want: false},
		{name: "reordered", previous: []domain.ClaimableAddress{a, b}, current: []domain.ClaimableAddress{b, a}, want: false},
		{name: "added", previous: []domain.ClaimableAddress{a}, current: []domain.ClaimableAddress{a, b}, want: true},
		{name: "removed", previous: []domain.ClaimableAddress{a, b}, current: []domain.ClaimableAddress{b}, want: true},
		{name: "field changed", previous: []domain.ClaimableAddress{a}, current: []domain.ClaimableAddress{claim("0x111", 1, "Corner Tap", "")}, want: true},
		{name: "quantity changed", previous: []domain.ClaimableAddress{a}, current: []domain.ClaimableAddress{{Address: "0x111", Claimable: true, ClaimIndex: 1, Quantity: 2, Song: "Jim Bristol"}}, want: true},
		{name: "same length different duplicates", previous: []domain.ClaimableAddress{a, a, b}, current: []domain.ClaimableAddress{a, b, b}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, claims.HasChanged(tt.previous, tt.current))
		})
	}
}

func TestDiff(t *testing.T) {
	a := claim("0x111", 1, "Jim Bristol", "")
	b := claim("0x222", 2, "", "Red")
	c := claim("0x333", 2, "", "Gold")

	added, removed := claims.Diff([]domain.ClaimableAddress{c, a, a}, []domain.ClaimableAddress{b, a})
	assert.Equal(t, []domain.ClaimableAddress{b}, added)
	assert.Equal(t, []domain.ClaimableAddress{a, c}, removed)

	added, removed = claims.Diff([]domain.ClaimableAddress{a, b}, []domain.ClaimableAddress{b, a})
	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestSort(t *testing.T) {
	list := []domain.ClaimableAddress{
		claim("0x222", 1, "Midwest Boy", ""),
		claim("0x111", 2, "", "Red"),
		claim("0x111", 1, "Jim Bristol", ""),
		claim("0x111", 1, "Corner Tap", ""),
	}
	claims.Sort(list)

	assert.Equal(t, []domain.ClaimableAddress{
		claim("0x111", 1, "Corner Tap", ""),
		claim("0x111", 1, "Jim Bristol", ""),
		claim("0x111", 2, "", "Red"),
		claim("0x222", 1, "Midwest Boy", ""),
	}, list)
}
