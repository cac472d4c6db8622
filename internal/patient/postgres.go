package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ Querier = (*pgxpool.Pool)(nil)

// LoadPostgres reads a table whose columns carry the documented CSV headers.
// The table is only ever selected from.
func LoadPostgres(ctx context.Context, db Querier, table string) (*Store, error) {
	quoted := make([]string, len(Columns))
	for i, col := range Columns {
		quoted[i] = pgx.Identifier{col}.Sanitize()
	}
	sql := fmt.Sprintf("SELECT %s::text FROM %s ORDER BY 1",
		strings.Join(quoted, "::text, "),
		pgx.Identifier(strings.Split(table, ".")).Sanitize(),
	)

	rows, err := db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var records []Record
	line := 1
	for rows.Next() {
		line++
		values := make([]*string, len(Columns))
		dest := make([]any, len(Columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", line-1, err)
		}

		row := make([]string, len(Columns))
		for i, v := range values {
			if v != nil {
				row[i] = *v
			}
		}
		row = normalizeDBDates(row)

		rec, err := parseRow(Columns, row, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}

	return NewStore(records)
}

// normalizeDBDates trims timestamp casts ("2001-02-03 00:00:00") down to the
// date part.
func normalizeDBDates(row []string) []string {
	for i, col := range Columns {
		if col != ColBirthDate || row[i] == "" {
			continue
		}
		if len(row[i]) > len(BirthDateLayout) {
			if _, err := time.Parse(BirthDateLayout, row[i][:len(BirthDateLayout)]); err == nil {
				row[i] = row[i][:len(BirthDateLayout)]
			}
		}
	}
	return row
}
