package mapping

// ReferenceAccessor is implemented by mappings whose Attribute carries
// ReferenceFlag and need to expose the actual referenced domain object
// (as opposed to GetValue, which per spec §4.2 returns only its id) so
// storage.Handle.Store can recursively store it before the referencing
// row, per the reference-first policy (spec §4.5, §5 "Ordering
// guarantees"). Mappings with no reference attributes need not implement
// this; storage.Handle treats its absence as "no referenced objects to
// store first".
type ReferenceAccessor interface {
	// GetReferencedObject returns the live referenced object held by
	// attr on object, or nil if attr is unset. attr.IsReference() is
	// true for every attr this is called with.
	GetReferencedObject(object any, attr *Attribute) (any, error)
}
