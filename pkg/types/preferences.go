// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// MaxStrength is the upper bound of a preference strength.
const MaxStrength = 5

// Preference records how strongly a user cares about one category. A
// strength of 0 is an explicit dislike; absence is a nil *Preference.
type Preference struct {
	Strength      int    `json:"strength" yaml:"strength" validate:"min=0,max=5"`
	ExtractedText string `json:"extracted_text" yaml:"extracted_text"`
}

// NewPreference returns a Preference or a *ValidationError when strength
// lies outside 0..5.
func NewPreference(strength int, extractedText string) (*Preference, error) {
	if strength < 0 || strength > MaxStrength {
		return nil, &ValidationError{Field: "strength", Value: strength, Reason: "must be between 0 and 5"}
	}
	return &Preference{Strength: strength, ExtractedText: extractedText}, nil
}

// Category names one interest dimension.
type Category string

const (
	CategoryNature        Category = "nature"
	CategoryHiking        Category = "hiking"
	CategoryBeach         Category = "beach"
	CategoryWatersports   Category = "watersports"
	CategoryEntertainment Category = "entertainment"
	CategoryWintersports  Category = "wintersports"
	CategoryCulture       Category = "culture"
	CategoryCulinary      Category = "culinary"
	CategoryArchitecture  Category = "architecture"
	CategoryShopping      Category = "shopping"
)

// AllCategories lists every interest category in declaration order.
var AllCategories = []Category{
	CategoryNature, CategoryHiking, CategoryBeach, CategoryWatersports,
	CategoryEntertainment, CategoryWintersports, CategoryCulture,
	CategoryCulinary, CategoryArchitecture, CategoryShopping,
}

// UserInterestPreferences holds one optional Preference per category.
type UserInterestPreferences struct {
	RawUserQuery  string      `json:"raw_user_query" yaml:"raw_user_query"`
	Nature        *Preference `json:"nature,omitempty" yaml:"nature,omitempty" validate:"omitempty"`
	Hiking        *Preference `json:"hiking,omitempty" yaml:"hiking,omitempty" validate:"omitempty"`
	Beach         *Preference `json:"beach,omitempty" yaml:"beach,omitempty" validate:"omitempty"`
	Watersports   *Preference `json:"watersports,omitempty" yaml:"watersports,omitempty" validate:"omitempty"`
	Entertainment *Preference `json:"entertainment,omitempty" yaml:"entertainment,omitempty" validate:"omitempty"`
	Wintersports  *Preference `json:"wintersports,omitempty" yaml:"wintersports,omitempty" validate:"omitempty"`
	Culture       *Preference `json:"culture,omitempty" yaml:"culture,omitempty" validate:"omitempty"`
	Culinary      *Preference `json:"culinary,omitempty" yaml:"culinary,omitempty" validate:"omitempty"`
	Architecture  *Preference `json:"architecture,omitempty" yaml:"architecture,omitempty" validate:"omitempty"`
	Shopping      *Preference `json:"shopping,omitempty" yaml:"shopping,omitempty" validate:"omitempty"`
}

// field returns a pointer to the category slot so Get and Set share one switch.
func (u *UserInterestPreferences) field(c Category) **Preference {
	switch c {
	case CategoryNature:
		return &u.Nature
	case CategoryHiking:
		return &u.Hiking
	case CategoryBeach:
		return &u.Beach
	case CategoryWatersports:
		return &u.Watersports
	case CategoryEntertainment:
		return &u.Entertainment
	case CategoryWintersports:
		return &u.Wintersports
	case CategoryCulture:
		return &u.Culture
	case CategoryCulinary:
		return &u.Culinary
	case CategoryArchitecture:
		return &u.Architecture
	case CategoryShopping:
		return &u.Shopping
	}
	return nil
}

// Get returns the preference for c, or nil when absent.
func (u *UserInterestPreferences) Get(c Category) *Preference {
	if u == nil {
		return nil
	}
	if f := u.field(c); f != nil {
		return *f
	}
	return nil
}

// Set stores p under c. Unknown categories are rejected.
func (u *UserInterestPreferences) Set(c Category, p *Preference) error {
	f := u.field(c)
	if f == nil {
		return &ValidationError{Field: "category", Value: c, Reason: "unknown category"}
	}
	*f = p
	return nil
}

// Present lists the categories that carry a preference, in AllCategories order.
func (u *UserInterestPreferences) Present() []Category {
	var out []Category
	for _, c := range AllCategories {
		if u.Get(c) != nil {
			out = append(out, c)
		}
	}
	return out
}

// HasAnyPreference reports whether at least one category is set. The raw
// query does not count.
func (u *UserInterestPreferences) HasAnyPreference() bool {
	return len(u.Present()) > 0
}

// BudgetTier is a coarse price band.
type BudgetTier string

const (
	BudgetLow    BudgetTier = "low"
	BudgetMedium BudgetTier = "medium"
	BudgetHigh   BudgetTier = "high"
)

// PricePreference bounds the weekly cost. Either bound may be absent.
type PricePreference struct {
	MinCostPerWeek *float64   `json:"min_cost_per_week,omitempty" yaml:"min_cost_per_week,omitempty" validate:"omitempty,gte=0"`
	MaxCostPerWeek *float64   `json:"max_cost_per_week,omitempty" yaml:"max_cost_per_week,omitempty" validate:"omitempty,gte=0"`
	BudgetTier     BudgetTier `json:"budget_tier,omitempty" yaml:"budget_tier,omitempty" validate:"omitempty,oneof=low medium high"`
	ExtractedText  string     `json:"extracted_text" yaml:"extracted_text"`
}

// HasBounds reports whether the preference constrains cost numerically.
func (p *PricePreference) HasBounds() bool {
	return p != nil && (p.MinCostPerWeek != nil || p.MaxCostPerWeek != nil)
}

// Popularity modes produced by the extraction prompt.
const (
	PopularityAvoidCrowds = "avoid_crowds"
	PopularitySeekPopular = "seek_popular"
	PopularityNeutral     = "neutral"
)

// PopularityPreference ranks the desired crowd level: 0 avoids crowds,
// 5 seeks popular places.
type PopularityPreference struct {
	Mode          string `json:"mode" yaml:"mode"`
	Strength      int    `json:"strength" yaml:"strength" validate:"min=0,max=5"`
	ExtractedText string `json:"extracted_text" yaml:"extracted_text"`
}

// Month is a lower-case three-letter month code.
type Month string

const (
	Jan Month = "jan"
	Feb Month = "feb"
	Mar Month = "mar"
	Apr Month = "apr"
	May Month = "may"
	Jun Month = "jun"
	Jul Month = "jul"
	Aug Month = "aug"
	Sep Month = "sep"
	Oct Month = "oct"
	Nov Month = "nov"
	Dec Month = "dec"
)

// AllMonths lists the months in calendar order.
var AllMonths = []Month{Jan, Feb, Mar, Apr, May, Jun, Jul, Aug, Sep, Oct, Nov, Dec}

// Valid reports whether m is one of the twelve month codes.
func (m Month) Valid() bool {
	for _, v := range AllMonths {
		if v == m {
			return true
		}
	}
	return false
}

// seasonMonths maps northern-hemisphere seasons onto months.
var seasonMonths = map[string][]Month{
	"winter": {Dec, Jan, Feb},
	"spring": {Mar, Apr, May},
	"summer": {Jun, Jul, Aug},
	"autumn": {Sep, Oct, Nov},
	"fall":   {Sep, Oct, Nov},
}

// SeasonMonths returns the months of a named season, or nil when unknown.
func SeasonMonths(season string) []Month {
	return seasonMonths[season]
}

// TimeOfYearPreference names months and/or a season.
type TimeOfYearPreference struct {
	Months        []Month `json:"months,omitempty" yaml:"months,omitempty"`
	Season        string  `json:"season,omitempty" yaml:"season,omitempty"`
	ExtractedText string  `json:"extracted_text" yaml:"extracted_text"`
}

// Validate checks every month code.
func (t *TimeOfYearPreference) Validate() error {
	if t == nil {
		return nil
	}
	for _, m := range t.Months {
		if !m.Valid() {
			return &ValidationError{Field: "months", Value: m, Reason: "unknown month code"}
		}
	}
	return nil
}

// ResolvedMonths is the ordered union of the listed months and the season's months.
func (t *TimeOfYearPreference) ResolvedMonths() []Month {
	if t == nil {
		return nil
	}
	seen := make(map[Month]bool)
	var out []Month
	for _, m := range append(append([]Month{}, t.Months...), SeasonMonths(t.Season)...) {
		if m.Valid() && !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// UserLogisticalPreferences holds the optional price, popularity and timing
// constraints.
type UserLogisticalPreferences struct {
	RawUserQuery string                `json:"raw_user_query" yaml:"raw_user_query"`
	Price        *PricePreference      `json:"price,omitempty" yaml:"price,omitempty" validate:"omitempty"`
	Popularity   *PopularityPreference `json:"popularity,omitempty" yaml:"popularity,omitempty" validate:"omitempty"`
	TimeOfYear   *TimeOfYearPreference `json:"time_of_year,omitempty" yaml:"time_of_year,omitempty" validate:"omitempty"`
}

// HasAnyPreference reports whether any logistical constraint is present.
func (u *UserLogisticalPreferences) HasAnyPreference() bool {
	if u == nil {
		return false
	}
	return u.Price != nil || u.Popularity != nil || u.TimeOfYear != nil
}

func (u *UserLogisticalPreferences) String() string {
	if u == nil {
		return "<nil>"
	}
	return fmt.Sprintf("price=%v popularity=%v time_of_year=%v", u.Price != nil, u.Popularity != nil, u.TimeOfYear != nil)
}
