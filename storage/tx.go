package storage

import "github.com/esoco/esoco-storage/storagelog"

// TxGroup is the scoped group-transaction primitive from spec §4.7: it
// groups the stores triggered while resolving a reference attribute into
// one transactional unit. It is restricted to store_reference (spec §5,
// "Transactions"): nothing else in this package opens a TxGroup.
//
// A TxGroup is reentrant: if h is already inside a transaction (the
// common case, since Handle.Store brackets the whole call in its own
// transaction per spec §5's "no implicit auto-commit"), beginGroup joins
// it instead of nesting a second one — only the outermost TxGroup commits
// or rolls back.
type TxGroup struct {
	h       *Handle
	started bool
}

// beginGroup starts a new transaction on h, or joins the one already open
// on h.
func beginGroup(h *Handle) (*TxGroup, error) {
	if h.inTx() {
		return &TxGroup{h: h}, nil
	}
	if err := h.BeginTx(); err != nil {
		return nil, err
	}
	return &TxGroup{h: h, started: true}, nil
}

// Commit commits the transaction if this TxGroup started it; a joined
// group is a no-op, leaving the commit to its enclosing caller.
func (g *TxGroup) Commit() error {
	if !g.started {
		return nil
	}
	return g.h.Commit()
}

// RollbackSwallowed attempts a rollback after cause if this TxGroup
// started the transaction, logging (rather than returning) a failure of
// the rollback attempt itself — the documented swallow from spec §9
// ("storeReference transactional interleaving ... logged-and-swallowed on
// the outer error path"). It always returns a non-nil error describing
// cause.
func (g *TxGroup) RollbackSwallowed(log storagelog.Logger, cause error) error {
	if !g.started {
		return cause
	}
	if err := g.h.Rollback(); err != nil {
		log.Warnw("rollback failed after store_reference error", "cause", cause, "rollback_err", err)
		return &RollbackError{Cause: cause, Err: err}
	}
	return &RollbackError{Cause: cause}
}
