package traits

import (
	"github.com/feral-file/ff-claims-checker/internal/domain"
)

// DefaultSongs is the canonical song universe, in catalog order
var DefaultSongs = []string{
	"Midwest Boy",
	"Im Gonna Love You",
	"Daddy's Head Hurts",
	"Jim Bristol",
	"Corner Tap",
}

// DefaultFrames is the canonical frame color universe, in catalog order
var DefaultFrames = []string{
	"Red",
	"Green",
	"Purple",
	"Silver",
	"Gold",
}

// DefaultAliases maps trait_type labels seen in token metadata to their category
var DefaultAliases = map[string]domain.TraitCategory{
	"Song":           domain.CategorySong,
	"Frame":          domain.CategoryFrame,
	"Colors":         domain.CategoryFrame,
	"Daddy's Colors": domain.CategoryFrame,
}

// Catalog holds the recognized trait vocabulary. It is read-only after construction.
type Catalog struct {
	aliases map[string]domain.TraitCategory
	values  map[domain.TraitCategory][]string
	rank    map[domain.TraitCategory]map[string]int
}

// Option configures a Catalog
type Option func(*Catalog)

// WithValues replaces the canonical value universe of a category
func WithValues(category domain.TraitCategory, values []string) Option {
	return func(c *Catalog) {
		c.values[category] = dedupe(values)
	}
}

// WithAlias maps an additional raw trait_type label to a category
func WithAlias(raw string, category domain.TraitCategory) Option {
	return func(c *Catalog) {
		c.aliases[raw] = category
	}
}

// New creates a catalog seeded with the defaults and the given overrides applied
func New(opts ...Option) *Catalog {
	c := &Catalog{
		aliases: make(map[string]domain.TraitCategory, len(DefaultAliases)),
		values: map[domain.TraitCategory][]string{
			domain.CategorySong:  dedupe(DefaultSongs),
			domain.CategoryFrame: dedupe(DefaultFrames),
		},
	}
	for raw, category := range DefaultAliases {
		c.aliases[raw] = category
	}

	for _, opt := range opts {
		opt(c)
	}

	c.rank = make(map[domain.TraitCategory]map[string]int, len(c.values))
	for category, values := range c.values {
		ranks := make(map[string]int, len(values))
		for i, v := range values {
			ranks[v] = i
		}
		c.rank[category] = ranks
	}

	return c
}

// Default returns a catalog with the built-in vocabulary
func Default() *Catalog {
	return New()
}

// Canonicalize maps a raw trait_type label to its category.
// The lookup is an exact, case-sensitive match; unrecognized labels yield CategoryUnknown.
func (c *Catalog) Canonicalize(rawTraitType string) domain.TraitCategory {
	category, ok := c.aliases[rawTraitType]
	if !ok || !domain.IsValidCategory(category) {
		return domain.CategoryUnknown
	}
	return category
}

// CanonicalValues returns the ordered value universe of a category
func (c *Catalog) CanonicalValues(category domain.TraitCategory) []string {
	values := c.values[category]
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// Rank returns the catalog position of a value within its category.
// The second return value is false for values outside the universe.
func (c *Catalog) Rank(category domain.TraitCategory, value string) (int, bool) {
	i, ok := c.rank[category][value]
	return i, ok
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
