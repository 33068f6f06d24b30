package model

import "time"

// Event is the sellable unit owned by the catalog subsystem.  The
// inventory core only reads and writes the capacity counters; all
// other event metadata (title, venue, pricing) is managed elsewhere.
//
// Invariant: 0 <= AvailableCapacity <= TotalCapacity, and
// AvailableCapacity changes only through inventory operations.
//
// Fields:
//  ID                – primary key identifier.
//  TotalCapacity     – total number of sellable seats.
//  AvailableCapacity – seats not currently held or confirmed.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Event struct {
	ID                uint64    // events.id
	TotalCapacity     uint32    // events.total_capacity
	AvailableCapacity uint32    // events.available_capacity
	CreatedAt         time.Time // events.created_at
	UpdatedAt         time.Time // events.updated_at
}
