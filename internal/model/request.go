package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RequestStatus is the lifecycle state of a Request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
)

// AllRequestStatuses lists every request status.
var AllRequestStatuses = []RequestStatus{RequestPending, RequestApproved, RequestRejected, RequestCancelled}

// Terminal reports whether no transition leaves s.
func (s RequestStatus) Terminal() bool {
	return s == RequestApproved || s == RequestRejected || s == RequestCancelled
}

var requestTransitions = map[RequestStatus]map[RequestStatus]struct{}{
	RequestPending: {
		RequestApproved:  {},
		RequestRejected:  {},
		RequestCancelled: {},
	},
}

// CanTransition reports whether next is reachable from current.
func CanTransition(current, next RequestStatus) bool {
	_, ok := requestTransitions[current][next]
	return ok
}

// RequestKind distinguishes personal lab access from class sessions.
type RequestKind string

const (
	KindPersonal RequestKind = "personal"
	KindClass    RequestKind = "class"
)

// KindForRole returns the request kind a requester of the given role submits.
func KindForRole(r Role) RequestKind {
	if r == RoleFaculty {
		return KindClass
	}
	return KindPersonal
}

// SystemIDs is an ordered list of workstation ids stored as a JSON column.
type SystemIDs []int

// Value implements driver.Valuer.
func (ids SystemIDs) Value() (driver.Value, error) {
	if ids == nil {
		return nil, nil
	}
	b, err := json.Marshal([]int(ids))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (ids *SystemIDs) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*ids = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), ids)
	case []byte:
		return json.Unmarshal(v, ids)
	default:
		return fmt.Errorf("cannot scan %T into SystemIDs", src)
	}
}

// Contains reports whether id is in the list.
func (ids SystemIDs) Contains(id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Request is a demand for lab systems submitted by a student or faculty member.
type Request struct {
	ID               string `gorm:"primaryKey;size:36"`
	RequesterUID     string `gorm:"size:128;not null;index"`
	RequesterLoginID string `gorm:"size:64;not null"`
	RequesterName    string `gorm:"size:256;not null"`
	RequesterRole    Role   `gorm:"size:16;not null"`

	Kind          RequestKind `gorm:"size:16;not null"`
	Purpose       string      `gorm:"type:text;not null"`
	Date          string      `gorm:"size:10;not null;index"` // YYYY-MM-DD
	StartTime     string      `gorm:"size:5;not null"`        // HH:mm
	EndTime       string      `gorm:"size:5;not null"`        // HH:mm
	ExpectedCount *int

	Status           RequestStatus `gorm:"size:16;not null;index"`
	AllocatedSystems SystemIDs     `gorm:"type:text"`
	AllocatedSlot    string        `gorm:"size:16"`

	SubmittedAt     time.Time `gorm:"not null;index"`
	ReviewedAt      *time.Time
	ReviewerLoginID string `gorm:"size:64"`

	Version   int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// RequestDraft is the requester-supplied part of a new Request.
type RequestDraft struct {
	Purpose       string
	Date          string
	StartTime     string
	EndTime       string
	ExpectedCount *int
}
