// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package destination turns raw dataset rows into validated DestinationRecords
// and reads the semicolon-delimited regions file.
package destination

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/pdiddy/travel-recommender/pkg/types"
)

// Dataset column names.
const (
	ColID           = "u_name"
	ColParentRegion = "Parent_region"
	ColRegion       = "Region"
	ColCostPerWeek  = "costPerWeek"
	ColDescription  = "Description"
	ColPopularity   = "popularity"
	ColSafety       = "safety"
)

// RawRow is one dataset row keyed by column name.
type RawRow map[string]string

// ErrNoIdentifier marks a row without a u_name. Loaders skip such rows.
var ErrNoIdentifier = errors.New("row has no identifier")

// symbolScores maps the five ordinal symbols onto [0,1].
var symbolScores = map[string]float64{
	"--": 0.0,
	"-":  0.25,
	"o":  0.5,
	"+":  0.75,
	"++": 1.0,
}

// signalColumns lists the thematic signal columns in dataset order. Safety
// is the only signal that is not also an interest category.
var signalColumns = []string{
	ColSafety,
	string(types.CategoryNature),
	string(types.CategoryHiking),
	string(types.CategoryBeach),
	string(types.CategoryWatersports),
	string(types.CategoryEntertainment),
	string(types.CategoryWintersports),
	string(types.CategoryCulture),
	string(types.CategoryCulinary),
	string(types.CategoryArchitecture),
	string(types.CategoryShopping),
}

// Columns returns every column Normalize reads, in dataset order.
func Columns() []string {
	cols := []string{ColID, ColParentRegion, ColRegion, ColCostPerWeek, ColPopularity}
	for _, m := range types.AllMonths {
		cols = append(cols, string(m))
	}
	cols = append(cols, signalColumns...)
	return append(cols, ColDescription)
}

// ScoreSymbol converts an ordinal symbol, or a number already in [0,1],
// into a score. Symbols are case-sensitive; surrounding whitespace is ignored.
func ScoreSymbol(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if v, ok := symbolScores[s]; ok {
		return v, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &types.ValidationError{Field: field, Value: raw, Reason: "not one of --, -, o, +, ++"}
	}
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, &types.ValidationError{Field: field, Value: raw, Reason: "numeric score outside [0,1]"}
	}
	return v, nil
}

// Normalize validates row and converts it into a DestinationRecord. It
// returns ErrNoIdentifier when u_name is blank and a *types.ValidationError
// for any other missing or malformed field.
func Normalize(row RawRow) (types.DestinationRecord, error) {
	var rec types.DestinationRecord

	id := strings.TrimSpace(row[ColID])
	if id == "" {
		return rec, ErrNoIdentifier
	}
	rec.ID = id

	var err error
	if rec.ParentRegion, err = required(row, ColParentRegion); err != nil {
		return rec, err
	}
	if rec.Region, err = required(row, ColRegion); err != nil {
		return rec, err
	}
	if rec.Description, err = required(row, ColDescription); err != nil {
		return rec, err
	}

	cost, err := required(row, ColCostPerWeek)
	if err != nil {
		return rec, err
	}
	rec.CostPerWeek, err = strconv.ParseFloat(cost, 64)
	if err != nil || rec.CostPerWeek < 0 || math.IsNaN(rec.CostPerWeek) || math.IsInf(rec.CostPerWeek, 0) {
		return rec, &types.ValidationError{Field: ColCostPerWeek, Value: cost, Reason: "must be a non-negative number"}
	}

	if rec.Popularity, err = scoreField(row, ColPopularity); err != nil {
		return rec, err
	}
	for _, m := range types.AllMonths {
		v, err := scoreField(row, string(m))
		if err != nil {
			return rec, err
		}
		rec.SetMonth(m, v)
	}
	if rec.Safety, err = scoreField(row, ColSafety); err != nil {
		return rec, err
	}
	for _, c := range types.AllCategories {
		v, err := scoreField(row, string(c))
		if err != nil {
			return rec, err
		}
		rec.SetSignal(c, v)
	}

	return rec, nil
}

func required(row RawRow, col string) (string, error) {
	v, ok := row[col]
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", &types.ValidationError{Field: col, Reason: "required field is missing"}
	}
	return v, nil
}

func scoreField(row RawRow, col string) (float64, error) {
	v, err := required(row, col)
	if err != nil {
		return 0, err
	}
	return ScoreSymbol(col, v)
}

// AsRaw renders rec back into a row. Scores are written as plain numbers, so
// Normalize(AsRaw(rec)) reproduces rec exactly.
func AsRaw(rec types.DestinationRecord) RawRow {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	row := RawRow{
		ColID:           rec.ID,
		ColParentRegion: rec.ParentRegion,
		ColRegion:       rec.Region,
		ColCostPerWeek:  f(rec.CostPerWeek),
		ColDescription:  rec.Description,
		ColPopularity:   f(rec.Popularity),
		ColSafety:       f(rec.Safety),
	}
	for _, m := range types.AllMonths {
		row[string(m)] = f(rec.Month(m))
	}
	for _, c := range types.AllCategories {
		row[string(c)] = f(rec.Signal(c))
	}
	return row
}
