// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package destination

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/travel-recommender/pkg/types"
)

// Delimiter separates columns in the regions file.
const Delimiter = ';'

// ErrSourceNotFound is wrapped when the dataset file does not exist.
var ErrSourceNotFound = errors.New("source file not found")

const utf8BOM = "\ufeff"

// LoadCSV reads and normalises every row of the file at path. Rows without
// an identifier are skipped; any other invalid row aborts the whole load.
func LoadCSV(path string, logger zerolog.Logger) ([]types.DestinationRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("opening %s: %w: %w", path, ErrSourceNotFound, err)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return ReadCSV(f, logger)
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(r io.Reader, logger zerolog.Logger) ([]types.DestinationRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &types.ValidationError{Field: "header", Reason: "file is empty"}
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
	}

	var (
		records []types.DestinationRecord
		seen    = make(map[string]int)
		skipped int
	)

	for rowNum := 1; ; rowNum++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", rowNum, err)
		}

		row := make(RawRow, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[name] = fields[i]
			}
		}

		rec, err := Normalize(row)
		if errors.Is(err, ErrNoIdentifier) {
			skipped++
			logger.Debug().Int("row", rowNum).Msg("skipping row without identifier")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", rowNum, strings.TrimSpace(row[ColID]), err)
		}
		if prev, dup := seen[rec.ID]; dup {
			return nil, &types.ValidationError{
				Field:  ColID,
				Value:  rec.ID,
				Reason: fmt.Sprintf("duplicate identifier (rows %d and %d)", prev, rowNum),
			}
		}
		seen[rec.ID] = rowNum
		records = append(records, rec)
	}

	logger.Info().Int("records", len(records)).Int("skipped", skipped).Msg("read destination rows")
	return records, nil
}

// WriteCSV writes records in the dataset layout using plain numeric scores.
func WriteCSV(w io.Writer, records []types.DestinationRecord) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	cols := Columns()
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	line := make([]string, len(cols))
	for _, rec := range records {
		raw := AsRaw(rec)
		for i, c := range cols {
			line[i] = raw[c]
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("writing %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
