package store

import (
	"context"
	"fmt"

	"github.com/roach88/sqlheur/internal/ir"
)

// RecordObservation inserts an observation into the log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
// Other constraint violations (e.g., an unknown outcome) still return errors.
func (s *Store) RecordObservation(ctx context.Context, obs ir.Observation) error {
	argsJSON, err := marshalArgs(obs.Args)
	if err != nil {
		return fmt.Errorf("record observation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO observations
		(id, seq, epoch, sql, args, candidate_sql, row_count, distance, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		obs.ID,
		obs.Seq,
		obs.Epoch,
		obs.SQL,
		argsJSON,
		obs.CandidateSQL,
		obs.Rows,
		obs.Distance,
		string(obs.Outcome),
		obs.Error,
	)
	if err != nil {
		return fmt.Errorf("record observation: %w", err)
	}

	return nil
}
