package region

import (
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	errs "github.com/calavorn/realmmap/pkg/errors"
)

// Tier identifies one level of the map. Each tier is an independent
// dataset with its own base map; region ids are not shared across tiers.
type Tier string

const (
	TierNation  Tier = "nation"
	TierCounty  Tier = "county"
	TierDuchy   Tier = "duchy"
	TierKingdom Tier = "kingdom"
	TierEmpire  Tier = "empire"
)

// tiers lists the known tiers from the finest subdivision up, with the
// standalone nation view last.
var tiers = []Tier{TierCounty, TierDuchy, TierKingdom, TierEmpire, TierNation}

var titler = cases.Title(language.English)

// Tiers returns all known tiers in display order.
func Tiers() []Tier { return slices.Clone(tiers) }

// ParseTier validates name and returns the matching tier.
func ParseTier(name string) (Tier, error) {
	if err := errs.ValidateTierName(name); err != nil {
		return "", err
	}
	t := Tier(name)
	if !slices.Contains(tiers, t) {
		return "", errs.New(errs.ErrCodeTierNotFound, "unknown tier %q", name)
	}
	return t, nil
}

// Title returns the display form of the tier, e.g. "County".
func (t Tier) Title() string { return titler.String(string(t)) }

func (t Tier) String() string { return string(t) }

// Next returns the tier after t in display order, wrapping around.
func (t Tier) Next() Tier {
	i := slices.Index(tiers, t)
	return tiers[(i+1)%len(tiers)]
}
