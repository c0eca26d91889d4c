package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"stayreg/internal/report/models"
	"stayreg/internal/report/ports"
)

// csvSource reads lodging rows from a CSV file. The first row is the header;
// cells beyond the header width are dropped, short rows are padded empty.
type csvSource struct {
	path string

	headers []string
	rows    []models.RawRow
	loaded  bool
}

var _ ports.RowSource = (*csvSource)(nil)

func newCSVSource(path string) *csvSource {
	return &csvSource{path: path}
}

func (s *csvSource) Headers(_ context.Context) ([]string, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.headers, nil
}

func (s *csvSource) Rows(_ context.Context) ([]models.RawRow, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.rows, nil
}

func (s *csvSource) load() error {
	if s.loaded {
		return nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // real-world sheets have ragged rows

	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("input file %s is empty", s.path)
	}

	s.headers = records[0]
	for _, cells := range records[1:] {
		row := make(models.RawRow, len(s.headers))
		for i, header := range s.headers {
			if i < len(cells) {
				row[header] = cells[i]
			} else {
				row[header] = ""
			}
		}
		s.rows = append(s.rows, row)
	}
	s.loaded = true
	return nil
}
