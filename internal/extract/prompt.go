// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/travel-recommender/pkg/types"
)

// interestSystem instructs the model to map the query onto the ten interest
// categories.
const interestSystem = `You extract travel interest preferences from a user's request.

Categories: {{range $i, $c := .Categories}}{{if $i}}, {{end}}{{$c}}{{end}}.

Rules:
- Fill a category only when the user states or implies it. Match on meaning, not only exact words.
- strength is an integer from 0 to 5, where 5 is a strong wish.
- An explicit dislike is strength 0. Keep it, do not drop it.
- Leave a category null when the user does not mention it.
- Ignore budget, travel dates and crowd levels. Those are handled elsewhere.
- extracted_text is a short snippet from the request that supports the preference.

Respond with a single JSON object keyed by category. Do not include any text outside the JSON object.`

// logisticsSystem instructs the model to extract price, popularity and
// timing constraints.
const logisticsSystem = `You extract logistical travel constraints from a user's request.

Extract only these sections: price, popularity, time_of_year.

Rules:
- Leave a section null when the request does not state or imply it.
- price: min_cost_per_week and/or max_cost_per_week as numbers, and budget_tier as one of low, medium, high when the user describes a budget without numbers.
- popularity: strength is an integer from 0 to 5. 0 means the user avoids crowds and prefers lesser-known places. 5 means the user wants popular places and does not mind crowds. mode is avoid_crowds, seek_popular or neutral.
- time_of_year: months as three-letter lower-case codes (jan..dec) and/or season as one of winter, spring, summer, autumn.
- extracted_text is a short snippet from the request that supports the section.

Respond with a single JSON object. Do not include any text outside the JSON object.`

const userTmpl = `Travel request:
{{.Query}}`

var (
	interestSystemTmpl  = template.Must(template.New("interests-system").Parse(interestSystem))
	logisticsSystemTmpl = template.Must(template.New("logistics-system").Parse(logisticsSystem))
	userPromptTmpl      = template.Must(template.New("user").Parse(userTmpl))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func interestPrompt(query string) (Prompt, error) {
	system, err := render(interestSystemTmpl, struct{ Categories []types.Category }{types.AllCategories})
	if err != nil {
		return Prompt{}, err
	}
	user, err := render(userPromptTmpl, struct{ Query string }{query})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{Name: "user_interest_preferences", System: system, User: user, Schema: interestSchema()}, nil
}

func logisticsPrompt(query string) (Prompt, error) {
	system, err := render(logisticsSystemTmpl, nil)
	if err != nil {
		return Prompt{}, err
	}
	user, err := render(userPromptTmpl, struct{ Query string }{query})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{Name: "user_logistical_preferences", System: system, User: user, Schema: logisticsSchema()}, nil
}

func nullable(schema map[string]any) map[string]any {
	return map[string]any{"anyOf": []any{schema, map[string]any{"type": "null"}}}
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

var (
	strengthSchema = map[string]any{"type": "integer", "minimum": 0, "maximum": types.MaxStrength}
	textSchema     = map[string]any{"type": "string"}
)

func interestSchema() map[string]any {
	props := make(map[string]any, len(types.AllCategories))
	names := make([]string, 0, len(types.AllCategories))
	for _, c := range types.AllCategories {
		props[string(c)] = nullable(object(map[string]any{
			"strength":       strengthSchema,
			"extracted_text": textSchema,
		}, "strength", "extracted_text"))
		names = append(names, string(c))
	}
	return object(props, names...)
}

func logisticsSchema() map[string]any {
	months := make([]any, len(types.AllMonths))
	for i, m := range types.AllMonths {
		months[i] = string(m)
	}
	cost := nullable(map[string]any{"type": "number", "minimum": 0})
	return object(map[string]any{
		"price": nullable(object(map[string]any{
			"min_cost_per_week": cost,
			"max_cost_per_week": cost,
			"budget_tier":       nullable(map[string]any{"type": "string", "enum": []any{"low", "medium", "high"}}),
			"extracted_text":    textSchema,
		}, "min_cost_per_week", "max_cost_per_week", "budget_tier", "extracted_text")),
		"popularity": nullable(object(map[string]any{
			"mode":           map[string]any{"type": "string", "enum": []any{types.PopularityAvoidCrowds, types.PopularitySeekPopular, types.PopularityNeutral}},
			"strength":       strengthSchema,
			"extracted_text": textSchema,
		}, "mode", "strength", "extracted_text")),
		"time_of_year": nullable(object(map[string]any{
			"months":         map[string]any{"type": "array", "items": map[string]any{"type": "string", "enum": months}},
			"season":         nullable(map[string]any{"type": "string", "enum": []any{"winter", "spring", "summer", "autumn"}}),
			"extracted_text": textSchema,
		}, "months", "season", "extracted_text")),
	}, "price", "popularity", "time_of_year")
}
