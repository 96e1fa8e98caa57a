package model

import "time"

// Category is the hardware class of a workstation.
type Category string

const (
	CategoryHighTier     Category = "high_tier"
	CategoryStandardTier Category = "standard_tier"
)

// SystemStatus is the occupancy state of a workstation.
type SystemStatus string

const (
	SystemAvailable   SystemStatus = "available"
	SystemOccupied    SystemStatus = "occupied"
	SystemReserved    SystemStatus = "reserved"
	SystemMaintenance SystemStatus = "maintenance"
)

// AllSystemStatuses lists every status in display order.
var AllSystemStatuses = []SystemStatus{SystemAvailable, SystemOccupied, SystemReserved, SystemMaintenance}

// Assigned reports whether the status carries an assignment.
func (s SystemStatus) Assigned() bool {
	return s == SystemOccupied || s == SystemReserved
}

// Valid reports whether s is a known status.
func (s SystemStatus) Valid() bool {
	switch s {
	case SystemAvailable, SystemOccupied, SystemReserved, SystemMaintenance:
		return true
	}
	return false
}

// Assignment binds a workstation to a requester for a time slot.
type Assignment struct {
	RequesterLoginID string `json:"requesterLoginId"`
	RequesterName    string `json:"requesterName"`
	TimeSlot         string `json:"timeSlot"`
}

// System is one lab workstation, the unit of allocation.
type System struct {
	ID       int          `gorm:"primaryKey;autoIncrement:false"`
	Category Category     `gorm:"size:16;not null"`
	Status   SystemStatus `gorm:"size:16;not null;index"`

	AssignedLoginID  *string `gorm:"size:64"`
	AssignedName     *string `gorm:"size:256"`
	AssignedTimeSlot *string `gorm:"size:16"`

	Version   int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Assignment returns the current assignment, or nil when the status carries none.
func (s System) Assignment() *Assignment {
	if !s.Status.Assigned() || s.AssignedLoginID == nil {
		return nil
	}
	a := &Assignment{RequesterLoginID: *s.AssignedLoginID}
	if s.AssignedName != nil {
		a.RequesterName = *s.AssignedName
	}
	if s.AssignedTimeSlot != nil {
		a.TimeSlot = *s.AssignedTimeSlot
	}
	return a
}

// CategoryFor returns the category of system id given the size of the high tier block.
func CategoryFor(id, highTierCount int) Category {
	if id <= highTierCount {
		return CategoryHighTier
	}
	return CategoryStandardTier
}
