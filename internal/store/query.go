// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/travel-recommender/pkg/types"
)

// columns is the table layout; recordValues and recordPointers follow the
// same order.
var columns = []string{
	"id", "parent_region", "region", "popularity", "cost_per_week",
	"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec",
	"safety", "nature", "hiking", "beach", "watersports", "entertainment",
	"wintersports", "culture", "culinary", "architecture", "shopping",
	"description",
}

var textColumns = map[string]bool{
	"id": true, "parent_region": true, "region": true, "description": true,
}

var (
	columnSet  = make(map[string]bool, len(columns))
	insertSQL  string
	selectCols string
)

func init() {
	for _, c := range columns {
		columnSet[c] = true
	}
	selectCols = strings.Join(columns, ", ")
	insertSQL = fmt.Sprintf("INSERT INTO destinations (%s) VALUES (?%s)",
		selectCols, strings.Repeat(", ?", len(columns)-1))
}

func isScoreColumn(c string) bool {
	return columnSet[c] && !textColumns[c] && c != "cost_per_week"
}

func recordValues(r *types.DestinationRecord) []any {
	return []any{
		r.ID, r.ParentRegion, r.Region, r.Popularity, r.CostPerWeek,
		r.Jan, r.Feb, r.Mar, r.Apr, r.May, r.Jun, r.Jul, r.Aug, r.Sep, r.Oct, r.Nov, r.Dec,
		r.Safety, r.Nature, r.Hiking, r.Beach, r.Watersports, r.Entertainment,
		r.Wintersports, r.Culture, r.Culinary, r.Architecture, r.Shopping,
		r.Description,
	}
}

func recordPointers(r *types.DestinationRecord) []any {
	return []any{
		&r.ID, &r.ParentRegion, &r.Region, &r.Popularity, &r.CostPerWeek,
		&r.Jan, &r.Feb, &r.Mar, &r.Apr, &r.May, &r.Jun, &r.Jul, &r.Aug, &r.Sep, &r.Oct, &r.Nov, &r.Dec,
		&r.Safety, &r.Nature, &r.Hiking, &r.Beach, &r.Watersports, &r.Entertainment,
		&r.Wintersports, &r.Culture, &r.Culinary, &r.Architecture, &r.Shopping,
		&r.Description,
	}
}

// Op is a comparison operator.
type Op string

const (
	OpEq       Op = "="
	OpNe       Op = "!="
	OpLt       Op = "<"
	OpLe       Op = "<="
	OpGt       Op = ">"
	OpGe       Op = ">="
	OpContains Op = "contains"
)

// Condition compares one column against a value.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Query is a conjunction of conditions with optional ordering and limit.
// Without OrderBy the result order is unspecified.
type Query struct {
	Conditions []Condition
	OrderBy    string
	Descending bool
	Limit      int
}

// Where is shorthand for building a Condition.
func Where(field string, op Op, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// fieldAliases lets callers use the dataset header names.
var fieldAliases = map[string]string{
	"u_name":        "id",
	"parent_region": "parent_region",
	"costperweek":   "cost_per_week",
	"cost":          "cost_per_week",
}

func resolveField(f string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(f))
	if alias, ok := fieldAliases[key]; ok {
		key = alias
	}
	if !columnSet[key] {
		return "", &types.ValidationError{Field: "field", Value: f, Reason: "unknown column"}
	}
	return key, nil
}

// clause renders one condition into SQL with a single placeholder.
func (c Condition) clause() (string, any, error) {
	col, err := resolveField(c.Field)
	if err != nil {
		return "", nil, err
	}

	value := c.Value
	if !textColumns[col] {
		f, err := toFloat(value)
		if err != nil {
			return "", nil, &types.ValidationError{Field: col, Value: c.Value, Reason: "expects a number"}
		}
		value = f
	} else {
		value = fmt.Sprint(value)
	}

	switch c.Op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return fmt.Sprintf("%s %s ?", col, c.Op), value, nil
	case OpContains:
		if !textColumns[col] {
			return "", nil, &types.ValidationError{Field: col, Value: c.Op, Reason: "contains applies to text columns only"}
		}
		return fmt.Sprintf("instr(lower(%s), lower(?)) > 0", col), value, nil
	}
	return "", nil, &types.ValidationError{Field: "op", Value: c.Op, Reason: "unknown operator"}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, fmt.Errorf("unsupported value type %T", v)
}

// Query returns the records matching every condition in q.
func (s *Store) Query(ctx context.Context, q Query) ([]types.DestinationRecord, error) {
	if err := s.checkLoaded("query"); err != nil {
		return nil, err
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString("SELECT " + selectCols + " FROM destinations WHERE 1=1")

	for _, c := range q.Conditions {
		sqlText, arg, err := c.clause()
		if err != nil {
			return nil, err
		}
		qb.WriteString(" AND " + sqlText)
		args = append(args, arg)
	}

	if q.OrderBy != "" {
		col, err := resolveField(q.OrderBy)
		if err != nil {
			return nil, err
		}
		qb.WriteString(" ORDER BY " + col)
		if q.Descending {
			qb.WriteString(" DESC")
		}
		if col != "id" {
			qb.WriteString(", id")
		}
	}

	if q.Limit > 0 {
		qb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, &types.StorageError{Op: "query", Err: err}
	}
	defer rows.Close()

	var results []types.DestinationRecord
	for rows.Next() {
		var r types.DestinationRecord
		if err := rows.Scan(recordPointers(&r)...); err != nil {
			return nil, &types.StorageError{Op: "query", Err: fmt.Errorf("scanning row: %w", err)}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StorageError{Op: "query", Err: err}
	}
	return results, nil
}

// parseOps is ordered so two-character operators match first.
var parseOps = []struct {
	token string
	op    Op
}{
	{"<=", OpLe}, {">=", OpGe}, {"!=", OpNe}, {"~", OpContains},
	{"=", OpEq}, {"<", OpLt}, {">", OpGt},
}

// ParseCondition reads expressions such as "cost_per_week<1000",
// "parent_region=Europe" or "description~food".
func ParseCondition(expr string) (Condition, error) {
	for _, p := range parseOps {
		if i := strings.Index(expr, p.token); i > 0 {
			field := strings.TrimSpace(expr[:i])
			value := strings.TrimSpace(expr[i+len(p.token):])
			if _, err := resolveField(field); err != nil {
				return Condition{}, err
			}
			return Condition{Field: field, Op: p.op, Value: value}, nil
		}
	}
	return Condition{}, &types.ValidationError{Field: "condition", Value: expr, Reason: "expected <field><op><value>"}
}
