// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures and configuration for the
// travel-recommender pipeline.
package types

// DestinationRecord is one normalised catalogue row. Every signal is in
// [0,1] and CostPerWeek is non-negative.
type DestinationRecord struct {
	ID           string  `json:"id" yaml:"id"`
	ParentRegion string  `json:"parent_region" yaml:"parent_region"`
	Region       string  `json:"region" yaml:"region"`
	Popularity   float64 `json:"popularity" yaml:"popularity"`
	CostPerWeek  float64 `json:"cost_per_week" yaml:"cost_per_week"`

	Jan float64 `json:"jan" yaml:"jan"`
	Feb float64 `json:"feb" yaml:"feb"`
	Mar float64 `json:"mar" yaml:"mar"`
	Apr float64 `json:"apr" yaml:"apr"`
	May float64 `json:"may" yaml:"may"`
	Jun float64 `json:"jun" yaml:"jun"`
	Jul float64 `json:"jul" yaml:"jul"`
	Aug float64 `json:"aug" yaml:"aug"`
	Sep float64 `json:"sep" yaml:"sep"`
	Oct float64 `json:"oct" yaml:"oct"`
	Nov float64 `json:"nov" yaml:"nov"`
	Dec float64 `json:"dec" yaml:"dec"`

	Safety        float64 `json:"safety" yaml:"safety"`
	Nature        float64 `json:"nature" yaml:"nature"`
	Hiking        float64 `json:"hiking" yaml:"hiking"`
	Beach         float64 `json:"beach" yaml:"beach"`
	Watersports   float64 `json:"watersports" yaml:"watersports"`
	Entertainment float64 `json:"entertainment" yaml:"entertainment"`
	Wintersports  float64 `json:"wintersports" yaml:"wintersports"`
	Culture       float64 `json:"culture" yaml:"culture"`
	Culinary      float64 `json:"culinary" yaml:"culinary"`
	Architecture  float64 `json:"architecture" yaml:"architecture"`
	Shopping      float64 `json:"shopping" yaml:"shopping"`

	Description string `json:"description" yaml:"description"`
}

// Month returns the travel-suitability score for m.
func (d *DestinationRecord) Month(m Month) float64 {
	if p := d.monthField(m); p != nil {
		return *p
	}
	return 0
}

// SetMonth stores v under m; unknown months are ignored.
func (d *DestinationRecord) SetMonth(m Month, v float64) {
	if p := d.monthField(m); p != nil {
		*p = v
	}
}

func (d *DestinationRecord) monthField(m Month) *float64 {
	switch m {
	case Jan:
		return &d.Jan
	case Feb:
		return &d.Feb
	case Mar:
		return &d.Mar
	case Apr:
		return &d.Apr
	case May:
		return &d.May
	case Jun:
		return &d.Jun
	case Jul:
		return &d.Jul
	case Aug:
		return &d.Aug
	case Sep:
		return &d.Sep
	case Oct:
		return &d.Oct
	case Nov:
		return &d.Nov
	case Dec:
		return &d.Dec
	}
	return nil
}

// Signal returns the thematic score for c.
func (d *DestinationRecord) Signal(c Category) float64 {
	if p := d.signalField(c); p != nil {
		return *p
	}
	return 0
}

// SetSignal stores v under c; unknown categories are ignored.
func (d *DestinationRecord) SetSignal(c Category, v float64) {
	if p := d.signalField(c); p != nil {
		*p = v
	}
}

func (d *DestinationRecord) signalField(c Category) *float64 {
	switch c {
	case CategoryNature:
		return &d.Nature
	case CategoryHiking:
		return &d.Hiking
	case CategoryBeach:
		return &d.Beach
	case CategoryWatersports:
		return &d.Watersports
	case CategoryEntertainment:
		return &d.Entertainment
	case CategoryWintersports:
		return &d.Wintersports
	case CategoryCulture:
		return &d.Culture
	case CategoryCulinary:
		return &d.Culinary
	case CategoryArchitecture:
		return &d.Architecture
	case CategoryShopping:
		return &d.Shopping
	}
	return nil
}
