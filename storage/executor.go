package storage

import (
	"context"

	dialectsql "github.com/esoco/esoco-storage/dialect/sql"
	"github.com/esoco/esoco-storage/mapping"
	"github.com/esoco/esoco-storage/predicate"
)

// Cursor is a forward iterator over a Query's result rows (spec §3,
// "Result cursor"). Rows are fully read and materialized into objects at
// Execute time rather than streamed one at a time from the driver:
// database/sql's *sql.Rows has no scrollable-cursor concept to fall back
// on for SetPosition, so this package buffers once and indexes in memory,
// which also makes SetPosition unconditionally supported rather than
// Unsupported-on-forward-only-drivers (spec §4.4, "Positioning").
type Cursor struct {
	objects []any
	pos     int
	closed  bool
}

// Next advances the cursor and returns the next object, or (nil, false)
// once exhausted.
func (c *Cursor) Next() (any, bool) {
	if c.closed || c.pos >= len(c.objects) {
		return nil, false
	}
	obj := c.objects[c.pos]
	c.pos++
	return obj, true
}

// SetPosition repositions the cursor absolutely (relative=false) or by
// offset from the current position (relative=true), returning the cursor
// itself so callers can chain .Next() (spec seed scenario 5).
func (c *Cursor) SetPosition(offset int, relative bool) *Cursor {
	if relative {
		c.pos += offset
	} else if offset < 0 {
		c.pos = len(c.objects) + offset
	} else {
		c.pos = offset
	}
	if c.pos < 0 {
		c.pos = 0
	}
	if c.pos > len(c.objects) {
		c.pos = len(c.objects)
	}
	return c
}

// Len reports the total number of buffered rows.
func (c *Cursor) Len() int { return len(c.objects) }

// Close marks the cursor exhausted. Closing a Query closes its Cursor
// (spec §3, "Lifecycle").
func (c *Cursor) Close() error {
	c.closed = true
	return nil
}

// execute runs text/args, scans each row into attribute values (plus
// trailing child-count integers when childCount is set), constructs an
// object per row via m.CreateObject, marks it persistent, and installs
// lazy child lists for every child mapping within the resolved depth
// (spec §4.4, "Row -> object" and "Lazy children").
func (h *Handle) execute(ctx context.Context, m mapping.Mapping, qp predicate.QueryPredicate, text string, args []any, childCount bool) (*Cursor, error) {
	var rows dialectsql.Rows
	if err := h.execQuerier().Query(ctx, text, args, &rows); err != nil {
		return nil, NewStorageError("execute", err)
	}
	defer rows.Close()

	attrs := m.Attributes()
	children := m.ChildMappings()
	width := len(attrs)
	if childCount {
		width += len(children)
	}

	cur := &Cursor{}
	for rows.Next() {
		raw := make([]any, width)
		dest := make([]any, width)
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, NewStorageError("execute", err)
		}

		values := make([]any, len(attrs))
		for i, attr := range attrs {
			checked, err := m.CheckAttributeValue(attr, raw[i])
			if err != nil {
				return nil, err
			}
			values[i] = checked
		}

		obj, err := m.CreateObject(values, qp.Child)
		if err != nil {
			return nil, err
		}
		if p, ok := obj.(mapping.Persistable); ok {
			p.SetPersistent(true)
		}

		depth := qp.Depth
		if depth != 0 && len(children) > 0 {
			childDepth := depth
			if childDepth != predicate.UnboundedDepth {
				childDepth--
			}
			for i, cm := range children {
				knownSize := int64(-1)
				if childCount {
					if n, ok := asInt64(raw[len(attrs)+i]); ok {
						knownSize = n
					}
				}
				list := newLazyList(h, m, cm, obj, knownSize)
				list.depth = childDepth
				if err := m.SetChildren(obj, list, cm); err != nil {
					return nil, err
				}
			}
		}

		cur.objects = append(cur.objects, obj)
	}
	return cur, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
