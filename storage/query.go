package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/esoco/esoco-storage/dialect"
	dialectsql "github.com/esoco/esoco-storage/dialect/sql"
	"github.com/esoco/esoco-storage/mapping"
	"github.com/esoco/esoco-storage/predicate"
	"github.com/esoco/esoco-storage/sqlcompile"
)

// Query is a compiled, reusable query (spec §3, "Query"): a prepared SQL
// string, a compare-attribute vector, a compare-value vector, and an
// order-by clause, plus whatever paging the originating QueryPredicate
// requested. Query owns its Cursor; Close closes it.
type Query struct {
	h    *Handle
	m    mapping.Mapping
	qp   predicate.QueryPredicate
	stmt sqlcompile.Statement

	cols       []*mapping.Attribute
	childCount bool // whether this query's SELECT list trails child-count columns

	cursor *Cursor
}

func newQuery(h *Handle, qp predicate.QueryPredicate, m mapping.Mapping) (*Query, error) {
	stmt, err := sqlcompile.Compile(qp, m, h.params, h.manager)
	if err != nil {
		return nil, mapping.NewError("query", "compiling %s: %v", m.Type(), err)
	}
	return &Query{
		h:          h,
		m:          m,
		qp:         qp,
		stmt:       stmt,
		cols:       m.Attributes(),
		childCount: h.manager.childCountColumns && len(m.ChildMappings()) > 0,
	}, nil
}

func (q *Query) selectText() (string, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, attr := range q.cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(sqlcompileQuotedName(attr, q.h.params))
	}
	for _, cm := range q.m.ChildMappings() {
		if !q.childCount {
			break
		}
		sb.WriteString(", ")
		sb.WriteString(childCountColumn(q.h.params, cm))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(q.h.params.Quote(tableNameFor(q.m)))
	if q.stmt.Where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(q.stmt.Where)
	}
	if q.stmt.OrderBy != "" {
		sb.WriteString(" ")
		sb.WriteString(q.stmt.OrderBy)
	}
	if q.qp.Offset != 0 || q.qp.Limit != predicate.NoLimit {
		if !q.h.params.SupportsPaging() {
			return "", NewUnsupported("query", fmt.Sprintf("dialect %q does not support paging", q.h.params.Name))
		}
		sb.WriteString(" ")
		fmt.Fprintf(&sb, q.h.params.PagingTemplate, q.qp.Offset, q.qp.Limit)
	}
	return sb.String(), nil
}

// mappedArgs re-applies mapping.MapValue to each compiled bind value, per
// spec §4.4 ("binds parameters in order by calling map_value ... for
// each").
func (q *Query) mappedArgs() ([]any, error) {
	out := make([]any, len(q.stmt.Args))
	for i, v := range q.stmt.Args {
		attr := q.stmt.CompareAttrs[i]
		if attr == nil {
			out[i] = v
			continue
		}
		mapped, err := q.m.MapValue(attr, v)
		if err != nil {
			return nil, err
		}
		out[i] = mapped
	}
	return out, nil
}

// Execute runs the compiled query and returns its Cursor. Closing the
// Query closes this Cursor; Execute may be called again after Close to
// re-run the same compiled statement.
func (q *Query) Execute(ctx context.Context) (*Cursor, error) {
	if q.cursor != nil {
		_ = q.cursor.Close()
	}
	text, err := q.selectText()
	if err != nil {
		return nil, err
	}
	args, err := q.mappedArgs()
	if err != nil {
		return nil, err
	}
	cur, err := q.h.execute(ctx, q.m, q.qp, text, args, q.childCount)
	if err != nil {
		return nil, err
	}
	q.cursor = cur
	return cur, nil
}

// Close closes the query's current cursor, if any.
func (q *Query) Close() error {
	if q.cursor == nil {
		return nil
	}
	err := q.cursor.Close()
	q.cursor = nil
	return err
}

// Size executes "SELECT COUNT(*)" against this query's WHERE clause
// (spec §4.4, "Size").
func (q *Query) Size(ctx context.Context) (int64, error) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(q.h.params.Quote(tableNameFor(q.m)))
	if q.stmt.Where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(q.stmt.Where)
	}
	args, err := q.mappedArgs()
	if err != nil {
		return 0, err
	}
	var rows dialectsql.Rows
	if err := q.h.execQuerier().Query(ctx, sb.String(), args, &rows); err != nil {
		return 0, NewStorageError("size", err)
	}
	defer rows.Close()
	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, NewStorageError("size", err)
		}
	}
	return count, nil
}

// GetDistinct compiles "SELECT DISTINCT <col>" against this query's WHERE
// clause, passing every raw value through CheckAttributeValue before
// returning it (spec §4.4, "Distinct query").
func (q *Query) GetDistinct(ctx context.Context, attrName string) ([]any, error) {
	var attr *mapping.Attribute
	for _, a := range q.cols {
		if a.Name == attrName {
			attr = a
			break
		}
	}
	if attr == nil {
		return nil, mapping.NewError("get_distinct", "%s has no attribute %q", q.m.Type(), attrName)
	}
	var sb strings.Builder
	sb.WriteString("SELECT DISTINCT ")
	sb.WriteString(sqlcompileQuotedName(attr, q.h.params))
	sb.WriteString(" FROM ")
	sb.WriteString(q.h.params.Quote(tableNameFor(q.m)))
	if q.stmt.Where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(q.stmt.Where)
	}
	args, err := q.mappedArgs()
	if err != nil {
		return nil, err
	}
	var rows dialectsql.Rows
	if err := q.h.execQuerier().Query(ctx, sb.String(), args, &rows); err != nil {
		return nil, NewStorageError("get_distinct", err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return nil, NewStorageError("get_distinct", err)
		}
		checked, err := q.m.CheckAttributeValue(attr, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, checked)
	}
	return out, nil
}

// PositionOf returns the zero-based row_number() position of the row
// whose id attribute equals id, among this query's WHERE/ORDER BY. If the
// underlying engine rejects the window-function syntax, it returns -1
// rather than failing (spec §4.4, "Position of id").
func (q *Query) PositionOf(ctx context.Context, id any) (int64, error) {
	idAttr := q.m.IDAttribute()
	if idAttr == nil {
		return -1, nil
	}
	orderBy := q.stmt.OrderBy
	if orderBy == "" {
		orderBy = "ORDER BY " + sqlcompileQuotedName(idAttr, q.h.params)
	}
	idCol := sqlcompileQuotedName(idAttr, q.h.params)
	var sb strings.Builder
	sb.WriteString("SELECT pos FROM (SELECT ")
	sb.WriteString(idCol)
	sb.WriteString(", ROW_NUMBER() OVER (")
	sb.WriteString(orderBy)
	sb.WriteString(") - 1 AS pos FROM ")
	sb.WriteString(q.h.params.Quote(tableNameFor(q.m)))
	if q.stmt.Where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(q.stmt.Where)
	}
	sb.WriteString(") t WHERE t.")
	sb.WriteString(idCol)
	sb.WriteString(" = ?")

	args, err := q.mappedArgs()
	if err != nil {
		return -1, err
	}
	idMapped, err := q.m.MapValue(idAttr, id)
	if err != nil {
		return -1, err
	}
	args = append(args, idMapped)

	var rows dialectsql.Rows
	if err := q.h.execQuerier().Query(ctx, sb.String(), args, &rows); err != nil {
		return -1, nil
	}
	defer rows.Close()
	var pos int64 = -1
	if rows.Next() {
		if err := rows.Scan(&pos); err != nil {
			return -1, nil
		}
	}
	return pos, nil
}

func childCountColumn(params dialect.Params, cm mapping.ChildMapping) string {
	return params.Quote(ChildCountColumnName(cm))
}

// ChildCountColumnName is the trailing integer column name maintained for
// cm per spec §6: "_cc_<childtable>".
func ChildCountColumnName(cm mapping.ChildMapping) string {
	return "_cc_" + sqlcompile.TableName(cm.Mapping)
}
