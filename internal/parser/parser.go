// Package parser loads recorded signal windows from JSONL capture files for
// replay through the pipeline. Parsing runs through DuckDB's read_json so
// malformed lines are skipped instead of failing the whole file.
package parser

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

type Parser struct {
	db *sql.DB
}

// NewParser wraps an open DuckDB handle. The handle is injected so the
// parser shares the caller's store instead of holding its own connection.
func NewParser(db *sql.DB) *Parser {
	return &Parser{db: db}
}

// FetchWindows reads every well-formed window from the capture at path,
// ordered by sequence number.
func (p *Parser) FetchWindows(path string) ([]*RecordedWindow, error) {
	query := fmt.Sprintf(`
		SELECT
			COALESCE(CAST(session_id AS VARCHAR), '') as session_id,
			seq,
			sample_rate,
			CAST(to_json(channels) AS VARCHAR) as channels_json
		FROM read_json('%s',
			format = 'newline_delimited',
			union_by_name = true,
			ignore_errors = true
		)
		WHERE channels IS NOT NULL
		  AND sample_rate IS NOT NULL
		ORDER BY seq ASC
	`, path)

	rows, err := p.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query capture: %w", err)
	}
	defer rows.Close()

	var windows []*RecordedWindow
	for rows.Next() {
		var (
			sessionID    string
			seq          int64
			sampleRate   float64
			channelsJSON string
		)
		if err := rows.Scan(&sessionID, &seq, &sampleRate, &channelsJSON); err != nil {
			continue
		}

		var channels [][]float64
		if err := json.Unmarshal([]byte(channelsJSON), &channels); err != nil {
			continue
		}

		windows = append(windows, &RecordedWindow{
			SessionID:  sessionID,
			Seq:        uint64(seq),
			SampleRate: sampleRate,
			Channels:   channels,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return windows, nil
}

// GetCaptureStats returns the window count and sequence range of a capture.
func (p *Parser) GetCaptureStats(path string) (int, uint64, uint64, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) as count,
			COALESCE(MIN(seq), 0) as first,
			COALESCE(MAX(seq), 0) as last
		FROM read_json('%s',
			format = 'newline_delimited',
			union_by_name = true,
			ignore_errors = true
		)
		WHERE channels IS NOT NULL
	`, path)

	var count int
	var first, last int64
	if err := p.db.QueryRow(query).Scan(&count, &first, &last); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get capture stats: %w", err)
	}
	return count, uint64(first), uint64(last), nil
}
