package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// TraitCategory represents a canonical trait category recognized by the catalog
type TraitCategory string

const (
	CategoryUnknown TraitCategory = ""
	CategorySong    TraitCategory = "Song"
	CategoryFrame   TraitCategory = "Frame"
)

// IsValidCategory checks if a category is one of the canonical categories
func IsValidCategory(category TraitCategory) bool {
	return category == CategorySong || category == CategoryFrame
}

// Attribute represents one trait on a token, following the OpenSea metadata standard
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// UnmarshalJSON accepts non-string attribute values (numbers, booleans) and keeps their textual form
func (a *Attribute) UnmarshalJSON(data []byte) error {
	var raw struct {
		TraitType json.RawMessage `json:"trait_type"`
		Value     json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	traitType, err := rawText(raw.TraitType)
	if err != nil {
		return fmt.Errorf("invalid trait_type: %w", err)
	}
	value, err := rawText(raw.Value)
	if err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}

	a.TraitType = traitType
	a.Value = value
	return nil
}

// rawText renders a scalar JSON value as text; null and absent values become empty
func rawText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("expected scalar, got %s", string(raw))
	default:
		// numbers and booleans keep their literal form
		if _, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return string(raw), nil
		}
		if b, err := strconv.ParseBool(string(raw)); err == nil {
			return strconv.FormatBool(b), nil
		}
		return "", fmt.Errorf("unsupported literal %s", string(raw))
	}
}

// TokenMetadata represents the metadata document of a single token
type TokenMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// OwnerHolding represents one address's full position in a collection.
// Metadata entries may be absent for some token IDs while scraping is in progress.
type OwnerHolding struct {
	OwnerAddress string                    `json:"ownerAddress"`
	TokenIDs     []uint64                  `json:"tokenIds"`
	Metadata     map[uint64]*TokenMetadata `json:"metadata"`

	// Malformed is set when the owner entry could not be decoded
	Malformed error `json:"-"`
}

// HoldsAny reports whether the owner holds at least one of the given token IDs
func (h *OwnerHolding) HoldsAny(tokenIDs []uint64) bool {
	for _, want := range tokenIDs {
		for _, have := range h.TokenIDs {
			if want == have {
				return true
			}
		}
	}
	return false
}

// CollectionDataset maps contract address -> owner address -> holding
type CollectionDataset map[string]map[string]*OwnerHolding

// Condition is a declarative eligibility rule evaluated per owner
type Condition struct {
	IfCategory               TraitCategory `json:"ifCategory" yaml:"ifCategory"`
	MustHaveCategory         TraitCategory `json:"mustHaveCategory" yaml:"mustHaveCategory"`
	RequiresOneSongAllColors bool          `json:"requiresOneSongAllColors,omitempty" yaml:"requiresOneSongAllColors,omitempty"`
	AllSongsOneColor         bool          `json:"allSongsOneColor,omitempty" yaml:"allSongsOneColor,omitempty"`
	RequiredTokenIDs         []uint64      `json:"requiredTokenIds,omitempty" yaml:"requiredTokenIds,omitempty"`
	MinTokenQuantity         *int          `json:"minTokenQuantity,omitempty" yaml:"minTokenQuantity,omitempty"`
	ClaimIndex               int           `json:"claimIndex" yaml:"claimIndex"`
	Quantity                 int           `json:"quantity" yaml:"quantity"`
}

// RequiresCoverage reports whether the condition carries a trait coverage rule
func (c Condition) RequiresCoverage() bool {
	return c.RequiresOneSongAllColors || c.AllSongsOneColor
}

// Normalize fills the categories implied by the coverage flag when they are omitted
func (c Condition) Normalize() Condition {
	switch {
	case c.RequiresOneSongAllColors:
		if c.IfCategory == CategoryUnknown {
			c.IfCategory = CategorySong
		}
		if c.MustHaveCategory == CategoryUnknown {
			c.MustHaveCategory = CategoryFrame
		}
	case c.AllSongsOneColor:
		if c.IfCategory == CategoryUnknown {
			c.IfCategory = CategoryFrame
		}
		if c.MustHaveCategory == CategoryUnknown {
			c.MustHaveCategory = CategorySong
		}
	}
	return c
}

// Validate checks the condition is internally consistent
func (c Condition) Validate() error {
	if c.RequiresOneSongAllColors && c.AllSongsOneColor {
		return fmt.Errorf("%w: claim %d sets both requiresOneSongAllColors and allSongsOneColor", ErrInvalidCondition, c.ClaimIndex)
	}

	if c.RequiresOneSongAllColors && (c.IfCategory != CategorySong || c.MustHaveCategory != CategoryFrame) {
		return fmt.Errorf("%w: claim %d requiresOneSongAllColors needs ifCategory=Song and mustHaveCategory=Frame", ErrInvalidCondition, c.ClaimIndex)
	}
	if c.AllSongsOneColor && (c.IfCategory != CategoryFrame || c.MustHaveCategory != CategorySong) {
		return fmt.Errorf("%w: claim %d allSongsOneColor needs ifCategory=Frame and mustHaveCategory=Song", ErrInvalidCondition, c.ClaimIndex)
	}

	if c.IfCategory != CategoryUnknown && !IsValidCategory(c.IfCategory) {
		return fmt.Errorf("%w: claim %d has unknown ifCategory %q", ErrInvalidCondition, c.ClaimIndex, c.IfCategory)
	}
	if c.MustHaveCategory != CategoryUnknown && !IsValidCategory(c.MustHaveCategory) {
		return fmt.Errorf("%w: claim %d has unknown mustHaveCategory %q", ErrInvalidCondition, c.ClaimIndex, c.MustHaveCategory)
	}

	if c.IfCategory != CategoryUnknown && c.IfCategory == c.MustHaveCategory {
		return fmt.Errorf("%w: claim %d pairs category %q with itself", ErrInvalidCondition, c.ClaimIndex, c.IfCategory)
	}

	if c.MinTokenQuantity != nil && *c.MinTokenQuantity < 0 {
		return fmt.Errorf("%w: claim %d has negative minTokenQuantity", ErrInvalidCondition, c.ClaimIndex)
	}

	return nil
}

// DefaultConditions returns the built-in reward rules
func DefaultConditions() []Condition {
	return []Condition{
		{
			IfCategory:               CategorySong,
			MustHaveCategory:         CategoryFrame,
			RequiresOneSongAllColors: true,
			ClaimIndex:               1,
			Quantity:                 1,
		},
		{
			IfCategory:       CategoryFrame,
			MustHaveCategory: CategorySong,
			AllSongsOneColor: true,
			ClaimIndex:       2,
			Quantity:         1,
		},
	}
}

// ClaimableAddress is a claim produced for an owner that satisfied a condition
type ClaimableAddress struct {
	Address    string `json:"address"`
	Claimable  bool   `json:"claimable"`
	ClaimIndex int    `json:"claimIndex"`
	Quantity   int    `json:"quantity"`
	Song       string `json:"song,omitempty"`
	Frame      string `json:"frame,omitempty"`
}

// ClaimsChangedEvent is published after a contract's claims file has been rewritten
type ClaimsChangedEvent struct {
	RunID           string             `json:"run_id"`
	ContractAddress string             `json:"contract_address"`
	Total           int                `json:"total"`
	Added           []ClaimableAddress `json:"added"`
	Removed         []ClaimableAddress `json:"removed"`
	Timestamp       int64              `json:"timestamp"`
}
