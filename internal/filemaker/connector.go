// Package filemaker talks to the FileMaker workshop database through one
// of two interchangeable transports: a direct ODBC connection or the
// HTTP API bridge deployed next to FileMaker Server.
//
// Both transports return raw records with FileMaker's own field names
// and string-typed values; normalization into canonical forms happens
// downstream, never here.
package filemaker

import (
	"context"
	"time"
)

// ConnectorModeAPI and ConnectorModeODBC select the transport.
const (
	ConnectorModeAPI  = "api"
	ConnectorModeODBC = "odbc"
)

// RawWorkshop is one workshop record as FileMaker delivers it. Every
// value is a string; empty means the field was absent.
type RawWorkshop struct {
	WorkshopNumber      string `json:"WorkshopNumber"`
	Title               string `json:"Title"`
	DescriptionFull     string `json:"DescriptionFull"`
	DateStart           string `json:"DateStart"`
	FirstSessionTime    string `json:"CalculatedFirstSessionTime"`
	FirstSessionEndTime string `json:"CalculatedFirstSessionEndTime"`
	WorkshopType        string `json:"WorkshopType"`
	MaxRegistrations    string `json:"MaximumWebRegistrationCount"`
	RegistrationCount   string `json:"CountOfRegistration"`
	CostStudent         string `json:"TotalCostToStudent"`
	CostEmployee        string `json:"TotalCostToStudentEmployee"`
	WebRate             string `json:"WebRate"`
	Presenters          string `json:"Presenters"`
	Location            string `json:"LocationOfFirstMeeting"`
	Status              string `json:"StatusActiveCanceled"`
	Approved            string `json:"Approved"`
	IncludeWeb          string `json:"IncludeWeb"`
	SessionCount        string `json:"CountOfSessions"`
	RegistrationDueDate string `json:"RegistrationDueDate"`
}

// RawSession is one session occurrence of a workshop.
type RawSession struct {
	DateStart    string `json:"DateStart"`
	BeginTime    string `json:"BeginTime"`
	EndTime      string `json:"EndTime"`
	BuildingRoom string `json:"LocationBuildingAndRoom"`
	LocationFull string `json:"LocationOneLineNameCityState"`
}

// Availability is a live seat count for one workshop. A workshop is
// available while the current count is strictly below the maximum.
type Availability struct {
	WorkshopNumber string `json:"workshop_number"`
	Title          string `json:"title"`
	Available      bool   `json:"available"`
	CurrentCount   int    `json:"current_count"`
	MaxCount       int    `json:"max_count"`
}

// Participant is the registrant payload sent to the source.
type Participant struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	District   string `json:"district,omitempty"`
	Building   string `json:"building,omitempty"`
	Position   string `json:"position,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
}

// RegistrationResult reports the source's answer to a registration
// attempt.
type RegistrationResult struct {
	Confirmed      bool   `json:"confirmed"`
	ConfirmationID string `json:"confirmation_id,omitempty"`
	Message        string `json:"message,omitempty"`
}

// TestResult reports the outcome of a connectivity probe.
type TestResult struct {
	Success       bool          `json:"success"`
	Message       string        `json:"message"`
	WorkshopCount int           `json:"workshop_count"`
	ResponseTime  time.Duration `json:"response_time"`
}

// RemoteLogEntry is one log line retrieved from the API bridge.
type RemoteLogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// Allowlist actions understood by the bridge.
const (
	AllowlistActionList   = "list"
	AllowlistActionAdd    = "add"
	AllowlistActionRemove = "remove"
)

// Connector is the transport-independent view of the FileMaker source.
//
// Write-side and admin operations are not available on every transport;
// implementations return ErrUnsupportedOperation where the transport
// cannot carry them.
type Connector interface {
	// Name identifies the transport, "api" or "odbc".
	Name() string

	// TestConnection probes the source and reports reachability.
	TestConnection(ctx context.Context) (*TestResult, error)

	// ListWorkshops fetches up to limit web-visible, approved, active,
	// upcoming workshops, skipping the first offset records.
	ListWorkshops(ctx context.Context, limit, offset int) ([]RawWorkshop, error)

	// GetWorkshopDetail fetches one workshop by number. Returns
	// ErrWorkshopNotFound when the source has no such workshop.
	GetWorkshopDetail(ctx context.Context, workshopNumber string) (*RawWorkshop, error)

	// ListSessions fetches the session occurrences of one workshop,
	// ordered by date then begin time.
	ListSessions(ctx context.Context, workshopNumber string) ([]RawSession, error)

	// CheckAvailability fetches a live seat count, bypassing any cache.
	CheckAvailability(ctx context.Context, workshopNumber string) (*Availability, error)

	// CheckRegistration reports whether the given email already holds a
	// registration for the workshop.
	CheckRegistration(ctx context.Context, workshopNumber, email string) (bool, error)

	// RegisterParticipant submits one registration. The call is made at
	// most once; callers decide whether a failure is surfaced or retried.
	RegisterParticipant(ctx context.Context, workshopNumber string, p Participant) (*RegistrationResult, error)

	// ManageAllowlist lists or mutates the bridge's email allowlist.
	// Requires an admin key on the API transport.
	ManageAllowlist(ctx context.Context, action, email string) ([]string, error)

	// FetchRemoteLogs retrieves recent log lines from the bridge.
	// Requires an admin key on the API transport.
	FetchRemoteLogs(ctx context.Context, limit int) ([]RemoteLogEntry, error)
}
