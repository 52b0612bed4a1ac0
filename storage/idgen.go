package storage

import (
	"github.com/google/uuid"

	"github.com/esoco/esoco-storage/mapping"
)

// assignUUIDIfNeeded fills a mapping.UUIDFlag id attribute with a freshly
// generated UUID string before insert, when the caller hasn't already set
// one. It leaves the attribute untouched if a non-zero value is already
// present, so callers that pre-assign their own id (e.g. for idempotent
// retries) are never overwritten.
func assignUUIDIfNeeded(m mapping.Mapping, obj any, attr *mapping.Attribute) error {
	if !attr.IsUUIDGenerated() {
		return nil
	}
	current, err := m.GetValue(obj, attr)
	if err != nil {
		return err
	}
	if s, ok := current.(string); ok && s != "" {
		return nil
	}
	return m.SetValue(obj, attr, uuid.NewString())
}
