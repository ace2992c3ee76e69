package dse

// ReferenceHandle is an opaque identifier linking a reference region to the
// real region it aliases. Two handles are equal iff their integer payload
// is equal; a handle carries no lifetime relationship to any particular
// region instance - it is purely nominal within a single execution.
type ReferenceHandle uint32
