package storage

import (
	"context"
	"sync"

	"github.com/esoco/esoco-storage/mapping"
	"github.com/esoco/esoco-storage/predicate"
)

// LazyList is the semantic container from component H: an ordered
// sequence that defers its sub-query until first read (spec §4.8). It
// holds a storage Definition (via the originating handle's Key), not a
// Handle, and acquires its own handle transiently to materialize (spec
// §3, "Lifecycle").
//
// Invariants preserved here: (1) newLazyList never queries; (2) Len,
// when knownSize is unknown, materializes; (3) any element read
// materializes; (4) after materialization this is a plain in-memory
// sequence; (5) mutations after materialization do not re-query.
type LazyList struct {
	manager *Manager
	key     Key

	parentMapping mapping.Mapping
	childMapping  mapping.ChildMapping
	parentObj     any
	depth         int

	mu           sync.Mutex
	knownSize    int64 // -1 if unknown
	materialized bool
	items        []any
}

// newLazyList constructs a LazyList for cm's children of parentObj. It
// issues no query (Invariant 1).
func newLazyList(h *Handle, parentMapping mapping.Mapping, cm mapping.ChildMapping, parentObj any, knownSize int64) *LazyList {
	return &LazyList{
		manager:       h.manager,
		key:           h.key,
		parentMapping: parentMapping,
		childMapping:  cm,
		parentObj:     parentObj,
		knownSize:     knownSize,
	}
}

// Materialized reports whether the sub-query has already run.
func (l *LazyList) Materialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.materialized
}

// Len returns the list's size. If the size was not known at construction
// (no child-count column), this materializes (Invariant 2); otherwise it
// returns the known count without querying.
func (l *LazyList) Len(ctx context.Context) (int, error) {
	l.mu.Lock()
	known := l.knownSize
	materialized := l.materialized
	l.mu.Unlock()
	if materialized {
		return len(l.items), nil
	}
	if known >= 0 {
		return int(known), nil
	}
	if err := l.materialize(ctx); err != nil {
		return 0, err
	}
	return len(l.items), nil
}

// Get returns the element at i, materializing first if needed
// (Invariant 3).
func (l *LazyList) Get(ctx context.Context, i int) (any, error) {
	if err := l.ensureMaterialized(ctx); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.items) {
		return nil, NewUnsupported("lazy_list_get", "index out of range")
	}
	return l.items[i], nil
}

// Items materializes if needed and returns the full in-memory sequence.
// Per Invariant 4, the returned slice is the list's live backing store:
// callers that want to mutate should use Append rather than editing this
// slice directly, so knownSize/materialized bookkeeping stays correct.
func (l *LazyList) Items(ctx context.Context) ([]any, error) {
	if err := l.ensureMaterialized(ctx); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items, nil
}

// Append materializes if needed (spec §9: a child-count-sized list must
// be materialized before being mutated, or a write would see a stale
// count) and appends item; subsequent reads do not re-query
// (Invariant 5).
func (l *LazyList) Append(ctx context.Context, item any) error {
	if err := l.ensureMaterialized(ctx); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, item)
	return nil
}

func (l *LazyList) ensureMaterialized(ctx context.Context) error {
	l.mu.Lock()
	materialized := l.materialized
	l.mu.Unlock()
	if materialized {
		return nil
	}
	return l.materialize(ctx)
}

// materialize opens a transient handle from the stored definition,
// executes the sub-query, collects every row, calls InitChildren on the
// parent mapping to back-fill parent references, then presents as a
// plain list (spec §3, "Lazy child list").
func (l *LazyList) materialize(ctx context.Context) error {
	l.mu.Lock()
	if l.materialized {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	h, err := l.manager.NewStorage(ctx, l.key)
	if err != nil {
		return err
	}
	defer h.Release()

	qp, err := l.subQuery()
	if err != nil {
		return err
	}
	q, err := h.Query(qp, l.childMapping.Mapping)
	if err != nil {
		return err
	}
	defer q.Close()
	cur, err := q.Execute(ctx)
	if err != nil {
		return err
	}

	var items []any
	for {
		obj, ok := cur.Next()
		if !ok {
			break
		}
		items = append(items, obj)
	}

	if err := l.parentMapping.InitChildren(l.parentObj, items, l.childMapping); err != nil {
		return err
	}

	l.mu.Lock()
	l.items = items
	l.materialized = true
	l.mu.Unlock()
	return nil
}

// subQuery builds "child_parent_attr = parent_id", bounded to l.depth,
// marked as a child query (spec §4.4, "Lazy children").
func (l *LazyList) subQuery() (predicate.QueryPredicate, error) {
	parentAttr := l.childMapping.Mapping.ParentAttribute(l.parentMapping)
	if parentAttr == nil {
		return predicate.QueryPredicate{}, mapping.NewError("lazy_list", "%s has no parent attribute back to %s", l.childMapping.Mapping.Type(), l.parentMapping.Type())
	}
	parentID, err := l.parentMapping.GetValue(l.parentObj, l.parentMapping.IDAttribute())
	if err != nil {
		return predicate.QueryPredicate{}, err
	}
	crit := predicate.IfAttribute(parentAttr, predicate.EqualTo(parentID))
	return predicate.QueryPredicate{
		Type:     l.childMapping.Mapping.Type(),
		Criteria: crit,
		Depth:    l.depth,
		Child:    true,
	}, nil
}
