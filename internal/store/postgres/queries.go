package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alfredjeanlab/chronicle/internal/model"
	"github.com/alfredjeanlab/chronicle/internal/predicate"
	"github.com/alfredjeanlab/chronicle/internal/store"
)

// activityColumns is the column list used for SELECT statements on the
// activity table, prefixed with the given alias.
func activityColumns(alias string) string {
	cols := []string{
		"id", "schema_name", "table_name", "relid", "issued_at", "transaction_id",
		"client_addr", "verb", "target_id", "old_data", "changed_data", "actor_id",
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

// attributionColumns are the metadata columns the one-time attribution
// update may set. Everything else on an activity row is immutable.
var attributionColumns = map[string]bool{
	"actor_id":    true,
	"client_addr": true,
}

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryInsertActivity(ctx context.Context, db executor, a *model.Activity) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO activity (
			schema_name, table_name, relid, issued_at, transaction_id,
			client_addr, verb, target_id, old_data, changed_data, actor_id
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11
		)
		RETURNING id`,
		a.SchemaName,
		a.TableName,
		a.RelID,
		a.IssuedAt,
		a.TransactionID,
		nullString(a.ClientAddr),
		string(a.Verb),
		nullString(a.TargetID),
		jsonbMap(a.OldData),
		jsonbMap(a.ChangedData),
		nullString(a.ActorID),
	).Scan(&a.ID)
}

// identityClause renders the correlation condition for an identity:
// the table matches and every primary-key field's text value in the
// merged payload matches.
func identityClause(alias string, id model.Identity, nextArg func() string, args *[]any) string {
	clauses := []string{alias + ".table_name = " + nextArg()}
	*args = append(*args, id.Table)
	for _, f := range id.Fields {
		clauses = append(clauses, fmt.Sprintf("%s ->> '%s' = %s", predicate.DataSQL(alias), f.Name, nextArg()))
		*args = append(*args, f.Value)
	}
	return strings.Join(clauses, " AND ")
}

func queryMaxTransactionID(ctx context.Context, db executor, id model.Identity, before *time.Time) (int64, error) {
	var (
		args   []any
		argIdx int
	)
	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	where := identityClause("a", id, nextArg, &args)
	if before != nil {
		where += " AND a.issued_at < " + nextArg()
		args = append(args, *before)
	}

	var max sql.NullInt64
	err := db.QueryRowContext(ctx,
		"SELECT MAX(a.transaction_id) FROM activity a WHERE "+where, args...,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max transaction id: %w", err)
	}
	if !max.Valid {
		return 0, store.ErrNoHistory
	}
	return max.Int64, nil
}

func queryDataAtTransaction(ctx context.Context, db executor, id model.Identity, txID int64) (map[string]any, error) {
	var (
		args   []any
		argIdx int
	)
	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	where := identityClause("a", id, nextArg, &args)
	where += " AND a.transaction_id = " + nextArg()
	args = append(args, txID)

	row := db.QueryRowContext(ctx, `
		SELECT a.old_data, a.changed_data
		FROM activity a
		WHERE `+where+`
		ORDER BY a.issued_at DESC, a.id DESC
		LIMIT 1`, args...)

	var oldRaw, changedRaw []byte
	if err := row.Scan(&oldRaw, &changedRaw); err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNoHistory
		}
		return nil, fmt.Errorf("data at transaction: %w", err)
	}

	oldData, err := unmarshalPayload(oldRaw)
	if err != nil {
		return nil, fmt.Errorf("data at transaction: %w", err)
	}
	changedData, err := unmarshalPayload(changedRaw)
	if err != nil {
		return nil, fmt.Errorf("data at transaction: %w", err)
	}
	return model.Merge(oldData, changedData), nil
}

func queryRecordsMatching(ctx context.Context, db executor, table string, pred *predicate.Reflected) ([]*model.Activity, error) {
	args := []any{table}
	where := "a.table_name = $1"
	if pred != nil {
		predSQL, predArgs := pred.SQL("a", len(args)+1)
		where += " AND " + predSQL
		args = append(args, predArgs...)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+activityColumns("a")+`
		FROM activity a
		WHERE `+where+`
		ORDER BY a.transaction_id ASC, a.issued_at ASC, a.id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("records matching: %w", err)
	}
	defer rows.Close()
	return scanActivities(rows)
}

// queryLastDeletions implements the empty-group variant of
// greatest-n-per-group: delete records with no later record for the
// same identity, found through a self anti-join.
func queryLastDeletions(ctx context.Context, db executor, table string, pkColumns []string, pred *predicate.Reflected) ([]*model.Activity, error) {
	join := []string{"a.table_name = b.table_name"}
	for _, col := range pkColumns {
		join = append(join, fmt.Sprintf("%s ->> '%s' = %s ->> '%s'",
			predicate.DataSQL("a"), col, predicate.DataSQL("b"), col))
	}
	join = append(join, "a.issued_at < b.issued_at")

	args := []any{table}
	where := "b.id IS NULL AND a.verb = 'delete' AND a.table_name = $1"
	if pred != nil {
		predSQL, predArgs := pred.SQL("a", len(args)+1)
		where += " AND " + predSQL
		args = append(args, predArgs...)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+activityColumns("a")+`
		FROM activity a
		LEFT OUTER JOIN activity b ON `+strings.Join(join, " AND ")+`
		WHERE `+where+`
		ORDER BY a.transaction_id ASC, a.issued_at ASC, a.id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("last deletions: %w", err)
	}
	defer rows.Close()
	return scanActivities(rows)
}

// queryAttributeTransaction attaches actor metadata to every row the
// current transaction wrote inside the window. Scoping on
// txid_current() means concurrent transactions never touch each
// other's rows; the window only bounds the search space.
func queryAttributeTransaction(ctx context.Context, db executor, values map[string]any, window time.Duration) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}

	cols := make([]string, 0, len(values))
	for col := range values {
		if !attributionColumns[col] {
			return 0, fmt.Errorf("attribute transaction: column %q is not an attribution column", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var (
		sets []string
		args []any
	)
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, values[col])
	}
	args = append(args, window.Seconds())

	res, err := db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE activity
		SET %s
		WHERE transaction_id = txid_current()
		  AND issued_at > (NOW() - make_interval(secs => $%d))`,
		strings.Join(sets, ", "), len(args)), args...)
	if err != nil {
		return 0, fmt.Errorf("attribute transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
