package store

import (
	"slices"
	"time"

	"lab-allocation-backend/internal/model"
)

// Precondition is the caller's view of a record at read time. Zero fields are not checked.
type Precondition struct {
	Status  model.SystemStatus
	Version int64
}

// RequestPatch carries the fields written alongside a request status change.
type RequestPatch struct {
	ExpectedVersion  int64
	ReviewedAt       *time.Time
	ReviewerLoginID  string
	AllocatedSystems model.SystemIDs
	AllocatedSlot    string
}

// SystemClaim names a system and the version observed during the pre-flight check.
type SystemClaim struct {
	ID      int
	Version int64
}

// AllocationCommit is everything needed to approve a request with systems attached.
type AllocationCommit struct {
	RequestID       string
	RequestVersion  int64
	Systems         []SystemClaim
	Assignment      model.Assignment
	ReviewerLoginID string
	ReviewedAt      time.Time
}

// SystemIDs returns the claimed ids in claim order.
func (c AllocationCommit) SystemIDs() model.SystemIDs {
	ids := make(model.SystemIDs, len(c.Systems))
	for i, claim := range c.Systems {
		ids[i] = claim.ID
	}
	return ids
}

// lockOrder returns the claims sorted by system id. Every commit updates rows in this
// order so two overlapping allocations queue on the same first row instead of deadlocking.
func (c AllocationCommit) lockOrder() []SystemClaim {
	claims := slices.Clone(c.Systems)
	slices.SortFunc(claims, func(a, b SystemClaim) int { return a.ID - b.ID })
	return claims
}
