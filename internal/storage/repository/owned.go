package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/osoriolabs/lawdesk/internal/models"
)

// userUIDColumn carries the owning tenant on every business table. The
// surface below stamps it on writes and filters by it on reads; callers
// never supply it.
const userUIDColumn = "user_uid"

// Order requests a single-column sort. Column may name a table column, in
// which case the sort is pushed to SQL, or a relation alias, in which case
// all matching rows are fetched and sorted in process by ordinal string
// comparison. The latter is fine at per-tenant row counts and is the first
// thing to replace with a join-based ORDER BY if they grow.
type Order struct {
	Column string
	Desc   bool
}

// InsertOwned inserts one or more rows into a registered table, stamping
// each with the principal's uid. A caller-supplied user_uid is discarded,
// never trusted. Returns the stored rows including server-assigned fields.
func (s *Storage) InsertOwned(ctx context.Context, principal models.Principal, table string, rows []map[string]any) ([]map[string]any, error) {
	const op = "storage.InsertOwned"

	res, err := LookupResource(table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(rows) == 0 {
		return []map[string]any{}, nil
	}

	columns, err := insertColumns(res, rows[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		placeholders []string
		args         []any
		n            = 1
	)
	for _, row := range rows {
		if err := sameColumns(columns, row); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		group := make([]string, 0, len(columns)+1)
		for _, c := range columns {
			group = append(group, fmt.Sprintf("$%d", n))
			args = append(args, row[c])
			n++
		}
		group = append(group, fmt.Sprintf("$%d", n))
		args = append(args, principal.UID)
		n++
		placeholders = append(placeholders, "("+strings.Join(group, ", ")+")")
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES %s RETURNING *`,
		res.Table, strings.Join(columns, ", "), userUIDColumn, strings.Join(placeholders, ", "))

	return s.queryRows(ctx, op, query, args...)
}

// SelectOwned reads rows matching the caller's equality filters, always
// constrained to the principal's tenant. The result is never nil: no
// matches yields an empty slice.
func (s *Storage) SelectOwned(ctx context.Context, principal models.Principal, table string, filters map[string]any, columns []string, order *Order) ([]map[string]any, error) {
	const op = "storage.SelectOwned"

	res, err := LookupResource(table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sel, joins, err := buildProjection(res, columns, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	where := []string{fmt.Sprintf("t.%s = $1", userUIDColumn)}
	args := []any{principal.UID}
	filterCols := sortedKeys(filters)
	for _, c := range filterCols {
		if err := res.checkColumn(c); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		args = append(args, filters[c])
		where = append(where, fmt.Sprintf("t.%s = $%d", c, len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s t%s WHERE %s`,
		sel, res.Table, joins, strings.Join(where, " AND "))

	var relatedSort bool
	if order != nil {
		if _, ok := res.Relations[order.Column]; ok {
			relatedSort = true
		} else {
			if err := res.checkColumn(order.Column); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			dir := "ASC"
			if order.Desc {
				dir = "DESC"
			}
			query += fmt.Sprintf(" ORDER BY t.%s %s", order.Column, dir)
		}
	}

	result, err := s.queryRows(ctx, op, query, args...)
	if err != nil {
		return nil, err
	}

	if relatedSort {
		sortByColumn(result, order.Column, order.Desc)
	}
	return result, nil
}

// SelectOneOwned reads exactly one row by id within the caller's tenant.
// Zero matches, including a row owned by someone else, is ErrNotFound.
func (s *Storage) SelectOneOwned(ctx context.Context, principal models.Principal, table, idColumn string, idValue any, columns []string) (map[string]any, error) {
	const op = "storage.SelectOneOwned"

	res, err := LookupResource(table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := res.checkColumn(idColumn); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sel, joins, err := buildProjection(res, columns, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s t%s WHERE t.%s = $1 AND t.%s = $2`,
		sel, res.Table, joins, idColumn, userUIDColumn)

	row := s.DB.QueryRowxContext(ctx, query, idValue, principal.UID)
	result := make(map[string]any)
	if err := row.MapScan(result); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	normalizeRow(result)
	return result, nil
}

// UpdateOwned patches the row matching idColumn within the caller's tenant.
// A row owned by another tenant matches nothing: the result is an empty
// slice, not an error, so existence is not leaked.
func (s *Storage) UpdateOwned(ctx context.Context, principal models.Principal, table, idColumn string, idValue any, patch map[string]any) ([]map[string]any, error) {
	const op = "storage.UpdateOwned"

	res, err := LookupResource(table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := res.checkColumn(idColumn); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sets := make([]string, 0, len(patch)+1)
	args := make([]any, 0, len(patch)+2)
	for _, c := range sortedKeys(patch) {
		// The tenant stamp and the id are not patchable.
		if c == userUIDColumn || c == idColumn {
			continue
		}
		if err := res.checkColumn(c); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		args = append(args, patch[c])
		sets = append(sets, fmt.Sprintf("%s = $%d", c, len(args)))
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("%s: empty patch", op)
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, idValue)
	idPos := len(args)
	args = append(args, principal.UID)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = $%d AND %s = $%d RETURNING *`,
		res.Table, strings.Join(sets, ", "), idColumn, idPos, userUIDColumn, idPos+1)

	return s.queryRows(ctx, op, query, args...)
}

// DeleteOwned removes the row matching idColumn within the caller's tenant
// and returns the deleted rows; an empty slice when nothing matched.
func (s *Storage) DeleteOwned(ctx context.Context, principal models.Principal, table, idColumn string, idValue any) ([]map[string]any, error) {
	const op = "storage.DeleteOwned"

	res, err := LookupResource(table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := res.checkColumn(idColumn); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2 RETURNING *`,
		res.Table, idColumn, userUIDColumn)

	return s.queryRows(ctx, op, query, idValue, principal.UID)
}

func (s *Storage) queryRows(ctx context.Context, op, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]map[string]any, 0)
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		normalizeRow(row)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// insertColumns returns the deterministic column list of an insert row with
// the tenant stamp stripped out.
func insertColumns(res Resource, row map[string]any) ([]string, error) {
	columns := make([]string, 0, len(row))
	for c := range row {
		if c == userUIDColumn {
			continue
		}
		if err := res.checkColumn(c); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("insert row has no columns")
	}
	sort.Strings(columns)
	return columns, nil
}

func sameColumns(columns []string, row map[string]any) error {
	n := len(row)
	if _, ok := row[userUIDColumn]; ok {
		n--
	}
	if n != len(columns) {
		return fmt.Errorf("insert rows must share the same columns")
	}
	for _, c := range columns {
		if _, ok := row[c]; !ok {
			return fmt.Errorf("insert rows must share the same columns")
		}
	}
	return nil
}

// buildProjection composes the SELECT list and any LEFT JOINs needed for
// relation aliases in the projection or the order.
func buildProjection(res Resource, columns []string, order *Order) (sel string, joins string, err error) {
	needed := map[string]Relation{}

	var parts []string
	if len(columns) == 0 {
		parts = append(parts, "t.*")
	} else {
		for _, c := range columns {
			if rel, ok := res.Relations[c]; ok {
				needed[c] = rel
				continue
			}
			if err := res.checkColumn(c); err != nil {
				return "", "", err
			}
			parts = append(parts, "t."+c)
		}
	}
	if order != nil {
		if rel, ok := res.Relations[order.Column]; ok {
			needed[order.Column] = rel
		}
	}

	for _, alias := range sortedRelationKeys(needed) {
		rel := needed[alias]
		parts = append(parts, fmt.Sprintf("rel_%s.%s AS %s", alias, rel.Column, alias))
		joins += fmt.Sprintf(" LEFT JOIN %s rel_%s ON rel_%s.id = t.%s", rel.Table, alias, alias, rel.FK)
	}

	return strings.Join(parts, ", "), joins, nil
}

// sortByColumn orders rows in place by ordinal string comparison of the
// named column. Missing values sort first.
func sortByColumn(rows []map[string]any, column string, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a := stringValue(rows[i][column])
		b := stringValue(rows[j][column])
		if desc {
			return strings.Compare(a, b) > 0
		}
		return strings.Compare(a, b) < 0
	})
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func normalizeRow(row map[string]any) {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedRelationKeys(m map[string]Relation) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
