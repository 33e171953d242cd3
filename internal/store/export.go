// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/travel-recommender/pkg/types"
)

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	FormatYAML ExportFormat = "yaml"
	FormatJSON ExportFormat = "json"
)

// Export writes the records matching q to w. The same filters as Query apply;
// results are ordered by id unless q orders them otherwise.
func (s *Store) Export(ctx context.Context, q Query, format ExportFormat, w io.Writer) (int, error) {
	if q.OrderBy == "" {
		q.OrderBy = "id"
	}
	records, err := s.Query(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("querying for export: %w", err)
	}
	if records == nil {
		records = []types.DestinationRecord{}
	}

	var data []byte
	switch format {
	case FormatYAML, "":
		data, err = yaml.Marshal(records)
	case FormatJSON:
		data, err = json.MarshalIndent(records, "", "  ")
		data = append(data, '\n')
	default:
		return 0, &types.ValidationError{Field: "format", Value: format, Reason: "use yaml or json"}
	}
	if err != nil {
		return 0, fmt.Errorf("marshaling %s: %w", format, err)
	}

	if _, err := w.Write(data); err != nil {
		return 0, fmt.Errorf("writing export: %w", err)
	}
	return len(records), nil
}
