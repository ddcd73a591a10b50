package sqlbuild

import (
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownField is returned when a partial update names a field that
// is not in the entity's allowlist. The update endpoints accept an open
// field map from clients, so unknown names must be rejected here rather
// than interpolated into SQL.
var ErrUnknownField = fmt.Errorf("unknown field")

// Update builds an allow-listed partial UPDATE statement:
//
//	UPDATE <table> SET col1 = $1, col2 = $2, updated_at = NOW() WHERE <idColumn> = $3 RETURNING <returning>
//
// allow maps exposed field names to column names; fields not present in
// allow produce ErrUnknownField. Columns are emitted in sorted field
// order so statements are deterministic. setUpdatedAt appends an
// updated_at = NOW() assignment for tables that track it.
func Update(table string, allow map[string]string, fields map[string]any, idColumn string, id any, returning string, setUpdatedAt bool) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("no fields to update")
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if _, ok := allow[name]; !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+1)
	for i, name := range names {
		sets = append(sets, fmt.Sprintf("%s = $%d", allow[name], i+1))
		args = append(args, fields[name])
	}
	if setUpdatedAt {
		sets = append(sets, "updated_at = NOW()")
	}
	args = append(args, id)

	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		table, strings.Join(sets, ", "), idColumn, len(args))
	if returning != "" {
		q += " RETURNING " + returning
	}
	return q, args, nil
}
