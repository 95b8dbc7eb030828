// Package store provides keyed slot persistence for the simulator.
// A slot is addressed by (kind, identity) and holds one whole JSON
// document; callers mutate by read-modify-write of the entire value.
package store

import "context"

type Store interface {
	// Load returns the raw value for the slot, with ok=false when the
	// slot has never been written.
	Load(ctx context.Context, kind, identity string) ([]byte, bool, error)
	// Save overwrites the slot with the given value.
	Save(ctx context.Context, kind, identity string, value []byte) error
	// Delete removes the slot. Deleting an absent slot is not an error.
	Delete(ctx context.Context, kind, identity string) error
}
