package filemaker

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/alexbrainman/odbc"
)

const workshopTable = "Workshops"

// FileMaker ODBC is sensitive to query shape; these column lists mirror
// the source layout exactly.
const (
	workshopColumns = `"WorkshopNumber", "Title", "DescriptionFull", "DateStart", ` +
		`"CalculatedFirstSessionTime", "CalculatedFirstSessionEndTime", "WorkshopType", ` +
		`"MaximumWebRegistrationCount", "CountOfRegistration", "TotalCostToStudent", ` +
		`"TotalCostToStudentEmployee", "WebRate", "Presenters", "LocationOfFirstMeeting", ` +
		`"StatusActiveCanceled", "Approved", "IncludeWeb", "CountOfSessions", "RegistrationDueDate"`

	sessionColumns = `"DateStart", "BeginTime", "EndTime", ` +
		`"LocationBuildingAndRoom", "LocationOneLineNameCityState"`
)

// The Sessions table links to its workshop through ParentWorkshopNumber,
// not WorkshopNumber.
var sessionsQuery = fmt.Sprintf(
	`SELECT %s FROM Sessions WHERE "ParentWorkshopNumber" = ? ORDER BY "DateStart", "BeginTime"`,
	sessionColumns,
)

var workshopNumberPattern = regexp.MustCompile(`[^A-Za-z0-9-]`)

// sanitizeWorkshopNumber strips everything outside [A-Za-z0-9-]. The
// FileMaker ODBC driver has no real parameter escaping for some builds,
// so the identifier is whitelisted before it reaches a query.
func sanitizeWorkshopNumber(number string) string {
	return workshopNumberPattern.ReplaceAllString(number, "")
}

// ODBCConnector reaches the FileMaker database directly over ODBC.
// Read-only: registration and bridge admin operations have no ODBC
// equivalent and return ErrUnsupportedOperation.
type ODBCConnector struct {
	db         *sql.DB
	webInclude string
}

// NewODBCConnector opens an ODBC connection to FileMaker. webInclude is
// the site tag matched against the IncludeWeb field; records not tagged
// for this site are invisible.
func NewODBCConnector(dsn, username, password, webInclude string) (*ODBCConnector, error) {
	if dsn == "" {
		return nil, ErrNotConfigured
	}

	connStr := fmt.Sprintf("DSN=%s;UID=%s;PWD=%s", dsn, username, password)
	db, err := sql.Open("odbc", connStr)
	if err != nil {
		return nil, &TransportError{Action: "connect", Err: err}
	}

	// FileMaker ODBC handles concurrency poorly; keep one connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &ODBCConnector{db: db, webInclude: webInclude}, nil
}

// Close releases the underlying ODBC connection.
func (c *ODBCConnector) Close() error {
	return c.db.Close()
}

func (c *ODBCConnector) Name() string {
	return ConnectorModeODBC
}

func (c *ODBCConnector) TestConnection(ctx context.Context) (*TestResult, error) {
	started := time.Now()
	if err := c.db.PingContext(ctx); err != nil {
		return &TestResult{
			Success:      false,
			Message:      err.Error(),
			ResponseTime: time.Since(started),
		}, &TransportError{Action: "test_connection", Err: err}
	}

	clause, args := c.visibilityClause()
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, workshopTable, clause)
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return &TestResult{
			Success:      false,
			Message:      err.Error(),
			ResponseTime: time.Since(started),
		}, &TransportError{Action: "test_connection", Err: err}
	}

	return &TestResult{
		Success:       true,
		Message:       "ODBC connection established",
		WorkshopCount: count,
		ResponseTime:  time.Since(started),
	}, nil
}

// visibilityClause returns the WHERE fragment shared by every workshop
// read: web-tagged for this site, approved, active, not yet started.
func (c *ODBCConnector) visibilityClause() (string, []any) {
	clause := `"IncludeWeb" LIKE ? AND "Approved" = ? AND "StatusActiveCanceled" = ? AND "DateStart" >= ?`
	args := []any{
		"%" + c.webInclude + "%",
		"Yes",
		"Active",
		time.Now().Format("01/02/2006"),
	}
	return clause, args
}

func (c *ODBCConnector) ListWorkshops(ctx context.Context, limit, offset int) ([]RawWorkshop, error) {
	if limit <= 0 {
		limit = 1000
	}
	clause, args := c.visibilityClause()
	query := fmt.Sprintf(
		`SELECT TOP %d %s FROM %s WHERE %s ORDER BY "DateStart"`,
		limit, workshopColumns, workshopTable, clause,
	)
	if offset > 0 {
		query = fmt.Sprintf(
			`SELECT %s FROM %s WHERE %s ORDER BY "DateStart" OFFSET %d ROWS FETCH FIRST %d ROWS ONLY`,
			workshopColumns, workshopTable, clause, offset, limit,
		)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &TransportError{Action: actionGetWorkshops, Err: err}
	}
	defer rows.Close()

	var workshops []RawWorkshop
	for rows.Next() {
		w, err := scanWorkshop(rows)
		if err != nil {
			return nil, &TransportError{Action: actionGetWorkshops, Err: err}
		}
		workshops = append(workshops, w)
	}
	if err := rows.Err(); err != nil {
		return nil, &TransportError{Action: actionGetWorkshops, Err: err}
	}
	return workshops, nil
}

func (c *ODBCConnector) GetWorkshopDetail(ctx context.Context, workshopNumber string) (*RawWorkshop, error) {
	number := sanitizeWorkshopNumber(workshopNumber)
	if number == "" {
		return nil, ErrWorkshopNotFound
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE "WorkshopNumber" = ?`,
		workshopColumns, workshopTable,
	)

	rows, err := c.db.QueryContext(ctx, query, number)
	if err != nil {
		return nil, &TransportError{Action: actionGetWorkshopDetail, Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &TransportError{Action: actionGetWorkshopDetail, Err: err}
		}
		return nil, ErrWorkshopNotFound
	}
	w, err := scanWorkshop(rows)
	if err != nil {
		return nil, &TransportError{Action: actionGetWorkshopDetail, Err: err}
	}
	return &w, nil
}

func (c *ODBCConnector) ListSessions(ctx context.Context, workshopNumber string) ([]RawSession, error) {
	number := sanitizeWorkshopNumber(workshopNumber)
	if number == "" {
		return nil, ErrWorkshopNotFound
	}

	rows, err := c.db.QueryContext(ctx, sessionsQuery, number)
	if err != nil {
		return nil, &TransportError{Action: actionGetSessions, Err: err}
	}
	defer rows.Close()

	var sessions []RawSession
	for rows.Next() {
		var s RawSession
		var dateStart, beginTime, endTime, buildingRoom, locationFull sql.NullString
		if err := rows.Scan(&dateStart, &beginTime, &endTime, &buildingRoom, &locationFull); err != nil {
			return nil, &TransportError{Action: actionGetSessions, Err: err}
		}
		s.DateStart = dateStart.String
		s.BeginTime = beginTime.String
		s.EndTime = endTime.String
		s.BuildingRoom = buildingRoom.String
		s.LocationFull = locationFull.String
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &TransportError{Action: actionGetSessions, Err: err}
	}
	return sessions, nil
}

func (c *ODBCConnector) CheckAvailability(ctx context.Context, workshopNumber string) (*Availability, error) {
	w, err := c.GetWorkshopDetail(ctx, workshopNumber)
	if err != nil {
		return nil, err
	}

	current := looseInt(w.RegistrationCount)
	maxCount := looseInt(w.MaxRegistrations)
	return &Availability{
		WorkshopNumber: w.WorkshopNumber,
		Title:          w.Title,
		Available:      current < maxCount,
		CurrentCount:   current,
		MaxCount:       maxCount,
	}, nil
}

// CheckRegistration is not possible over ODBC: registrant records live
// behind the bridge, not in the tables this connection can see.
func (c *ODBCConnector) CheckRegistration(_ context.Context, _, _ string) (bool, error) {
	return false, ErrUnsupportedOperation
}

// RegisterParticipant is not possible over ODBC: registrations go
// through FileMaker scripts the SQL surface cannot trigger.
func (c *ODBCConnector) RegisterParticipant(_ context.Context, _ string, _ Participant) (*RegistrationResult, error) {
	return nil, ErrUnsupportedOperation
}

func (c *ODBCConnector) ManageAllowlist(_ context.Context, _, _ string) ([]string, error) {
	return nil, ErrUnsupportedOperation
}

func (c *ODBCConnector) FetchRemoteLogs(_ context.Context, _ int) ([]RemoteLogEntry, error) {
	return nil, ErrUnsupportedOperation
}

func scanWorkshop(rows *sql.Rows) (RawWorkshop, error) {
	var w RawWorkshop
	fields := make([]sql.NullString, 19)
	dest := make([]any, len(fields))
	for i := range dest {
		dest[i] = &fields[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return w, err
	}

	w.WorkshopNumber = fields[0].String
	w.Title = fields[1].String
	w.DescriptionFull = fields[2].String
	w.DateStart = fields[3].String
	w.FirstSessionTime = fields[4].String
	w.FirstSessionEndTime = fields[5].String
	w.WorkshopType = fields[6].String
	w.MaxRegistrations = fields[7].String
	w.RegistrationCount = fields[8].String
	w.CostStudent = fields[9].String
	w.CostEmployee = fields[10].String
	w.WebRate = fields[11].String
	w.Presenters = fields[12].String
	w.Location = fields[13].String
	w.Status = fields[14].String
	w.Approved = fields[15].String
	w.IncludeWeb = fields[16].String
	w.SessionCount = fields[17].String
	w.RegistrationDueDate = fields[18].String
	return w, nil
}

func looseInt(s string) int {
	var n int
	_, _ = fmt.Sscanf(s, "%d", &n)
	return n
}
