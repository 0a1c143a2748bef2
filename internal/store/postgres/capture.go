package postgres

import (
	"context"
	"fmt"
	"regexp"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/chronicle/internal/store"
)

// AuditTable enables change capture on a relation by attaching the
// audit trigger installed by the migrations. Excluded columns are
// dropped from the captured payloads; excluding a column the table
// does not have fails inside audit_table when the trigger fires, so
// callers should validate excludes against their registry first.
func (s *PostgresStore) AuditTable(ctx context.Context, table string, exclude ...string) error {
	var err error
	if len(exclude) == 0 {
		_, err = s.db.ExecContext(ctx, `SELECT audit_table($1::regclass)`, table)
	} else {
		_, err = s.db.ExecContext(ctx, `SELECT audit_table($1::regclass, $2)`, table, pq.Array(exclude))
	}
	if err != nil {
		return fmt.Errorf("audit table %s: %w", table, err)
	}
	return nil
}

var replicationRolePattern = regexp.MustCompile(`^[a-z_]+$`)

// SuspendCapture runs fn inside a transaction with the capture
// triggers suppressed, by toggling session_replication_role to 'local'
// for the duration. Bulk imports and history replays use this; capture
// resumes when the transaction ends.
func (s *PostgresStore) SuspendCapture(ctx context.Context, fn func(tx store.Store) error) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error {
		txs := tx.(*txStore)

		var current string
		if err := txs.tx.QueryRowContext(ctx,
			`SELECT current_setting('session_replication_role')`).Scan(&current); err != nil {
			return fmt.Errorf("read replication role: %w", err)
		}
		if !replicationRolePattern.MatchString(current) {
			return fmt.Errorf("unexpected replication role %q", current)
		}

		if _, err := txs.tx.ExecContext(ctx, `SET LOCAL session_replication_role = 'local'`); err != nil {
			return fmt.Errorf("suspend capture: %w", err)
		}

		if err := fn(tx); err != nil {
			return err
		}

		// SET LOCAL cannot take a bind parameter; the role value was
		// validated above.
		if _, err := txs.tx.ExecContext(ctx,
			fmt.Sprintf(`SET LOCAL session_replication_role = '%s'`, current)); err != nil {
			return fmt.Errorf("resume capture: %w", err)
		}
		return nil
	})
}
