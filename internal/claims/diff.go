package claims

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/feral-file/ff-claims-checker/internal/domain"
)

// Fingerprint returns the RFC 8785 canonical JSON form of a claim.
// Two claims are structurally equal iff their fingerprints are equal.
func Fingerprint(claim domain.ClaimableAddress) (string, error) {
	data, err := json.Marshal(claim)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claim: %w", err)
	}

	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize claim: %w", err)
	}
	return string(canonical), nil
}

// HasChanged reports whether two claim lists differ as multisets of structurally equal records.
// Order is ignored; membership, counts and field values are not.
func HasChanged(previous, current []domain.ClaimableAddress) bool {
	if len(previous) != len(current) {
		return true
	}

	added, removed := Diff(previous, current)
	return len(added) > 0 || len(removed) > 0
}

// Diff returns the claims present only in current (added) and only in previous (removed).
// Duplicates are matched one-for-one.
func Diff(previous, current []domain.ClaimableAddress) (added, removed []domain.ClaimableAddress) {
	counts := make(map[string]int, len(previous))
	prevByKey := make(map[string][]domain.ClaimableAddress, len(previous))
	for _, c := range previous {
		key := mustFingerprint(c)
		counts[key]++
		prevByKey[key] = append(prevByKey[key], c)
	}

	for _, c := range current {
		key := mustFingerprint(c)
		if counts[key] > 0 {
			counts[key]--
			continue
		}
		added = append(added, c)
	}

	for key, n := range counts {
		if n > 0 {
			removed = append(removed, prevByKey[key][:n]...)
		}
	}

	Sort(added)
	Sort(removed)
	return added, removed
}

// mustFingerprint is Fingerprint with a Go-syntax fallback key
func mustFingerprint(c domain.ClaimableAddress) string {
	key, err := Fingerprint(c)
	if err != nil {
		return fmt.Sprintf("%#v", c)
	}
	return key
}
