package entities

import "time"

// Workshop is one cached offering mirrored from FileMaker. The
// workshop number is the natural key; every synced field is overwritten
// wholesale from the latest fetch. Registration counts are mirrored from
// the source and never adjusted locally.
type Workshop struct {
	ID                       uint      `gorm:"primaryKey" json:"id"`
	WorkshopNumber           string    `gorm:"uniqueIndex;size:50;not null" json:"workshop_number"`
	Title                    string    `gorm:"size:255" json:"title"`
	DescriptionFull          string    `gorm:"type:text" json:"description_full"`
	StartDate                *string   `gorm:"size:10;index" json:"start_date"`
	StartTime                *string   `gorm:"size:8" json:"start_time"`
	EndTime                  *string   `gorm:"size:8" json:"end_time"`
	WorkshopType             string    `gorm:"size:100" json:"workshop_type"`
	MaxRegistrationCount     int       `json:"max_registration_count"`
	CurrentRegistrationCount int       `json:"current_registration_count"`
	CostStudent              float64   `json:"cost_student"`
	CostEmployee             float64   `json:"cost_employee"`
	WebRate                  float64   `json:"web_rate"`
	Presenters               string    `gorm:"type:text" json:"presenters"`
	Location                 string    `gorm:"size:255" json:"location"`
	Status                   string    `gorm:"size:20;index" json:"status"`
	Approved                 string    `gorm:"size:10" json:"approved"`
	IncludeWeb               string    `gorm:"size:50" json:"include_web"`
	RegistrationDueDate      *string   `gorm:"size:10" json:"registration_due_date"`
	LastSynced               time.Time `json:"last_synced"`
}

func (Workshop) TableName() string {
	return "workshops"
}

// Session is a child occurrence of a workshop (multi-day workshops have
// several). The session set for a workshop is fully replaced on every
// sync of that workshop, never merged.
type Session struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	WorkshopNumber       string    `gorm:"index;size:50;not null" json:"workshop_number"`
	SessionDate          *string   `gorm:"size:10;index" json:"session_date"`
	BeginTime            *string   `gorm:"size:8" json:"begin_time"`
	EndTime              *string   `gorm:"size:8" json:"end_time"`
	LocationBuildingRoom string    `gorm:"size:255" json:"location_building_room"`
	LocationFull         string    `gorm:"size:500" json:"location_full"`
	LastSynced           time.Time `json:"last_synced"`
}

func (Session) TableName() string {
	return "sessions"
}

// Workshop lifecycle status values as delivered by FileMaker. Other
// values pass through untouched.
const (
	WorkshopStatusActive   = "Active"
	WorkshopStatusCanceled = "Canceled"

	WorkshopApprovedYes = "Yes"
)
