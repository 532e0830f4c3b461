package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/sqlheur/internal/ir"
)

const observationColumns = `id, seq, epoch, sql, args, candidate_sql, row_count, distance, outcome, error`

// ReadObservations returns every observation in the log.
// Results are ordered deterministically: ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ReadObservations(ctx context.Context) ([]ir.Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+observationColumns+`
		FROM observations
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	return collectObservations(rows)
}

// ReadEpoch returns the observations appended in one accumulator epoch,
// in the same order as ReadObservations.
func (s *Store) ReadEpoch(ctx context.Context, epoch int64) ([]ir.Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+observationColumns+`
		FROM observations
		WHERE epoch = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, epoch)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	return collectObservations(rows)
}

// LatestEpoch returns the highest epoch in the log, or 0 when it is empty.
func (s *Store) LatestEpoch(ctx context.Context) (int64, error) {
	var epoch sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(epoch) FROM observations`).Scan(&epoch)
	if err != nil {
		return 0, fmt.Errorf("query latest epoch: %w", err)
	}
	return epoch.Int64, nil
}

// LatestSeq returns the highest seq in the log, or 0 when it is empty.
// A reopened log resumes its clock from here.
func (s *Store) LatestSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM observations`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query latest seq: %w", err)
	}
	return seq.Int64, nil
}

func collectObservations(rows *sql.Rows) ([]ir.Observation, error) {
	defer rows.Close()

	observations := []ir.Observation{}
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return observations, nil
}

// scanObservation scans a single observation row.
func scanObservation(rows *sql.Rows) (ir.Observation, error) {
	var obs ir.Observation
	var argsJSON, outcome string

	err := rows.Scan(
		&obs.ID,
		&obs.Seq,
		&obs.Epoch,
		&obs.SQL,
		&argsJSON,
		&obs.CandidateSQL,
		&obs.Rows,
		&obs.Distance,
		&outcome,
		&obs.Error,
	)
	if err != nil {
		return ir.Observation{}, fmt.Errorf("scan observation: %w", err)
	}

	obs.Args, err = unmarshalArgs(argsJSON)
	if err != nil {
		return ir.Observation{}, fmt.Errorf("scan observation %s: %w", obs.ID, err)
	}
	obs.Outcome = ir.Outcome(outcome)

	return obs, nil
}
