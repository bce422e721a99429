package registration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/roe24/workshop-bridge/internal/database/errorlog"
	"github.com/roe24/workshop-bridge/internal/database/settings"
	"github.com/roe24/workshop-bridge/internal/database/workshops"
	"github.com/roe24/workshop-bridge/internal/entities"
	"github.com/roe24/workshop-bridge/internal/filemaker"
	"github.com/roe24/workshop-bridge/internal/logging"
	"github.com/roe24/workshop-bridge/internal/settingsstore"
)

type stubConnector struct {
	availability      *filemaker.Availability
	availabilityErr   error
	alreadyRegistered bool
	checkErr          error
	result            *filemaker.RegistrationResult
	registerErr       error
	registerCalls     int
}

func (s *stubConnector) Name() string { return "stub" }

func (s *stubConnector) TestConnection(context.Context) (*filemaker.TestResult, error) {
	return &filemaker.TestResult{Success: true}, nil
}

func (s *stubConnector) ListWorkshops(context.Context, int, int) ([]filemaker.RawWorkshop, error) {
	return nil, nil
}

func (s *stubConnector) GetWorkshopDetail(context.Context, string) (*filemaker.RawWorkshop, error) {
	return nil, filemaker.ErrWorkshopNotFound
}

func (s *stubConnector) ListSessions(context.Context, string) ([]filemaker.RawSession, error) {
	return nil, nil
}

func (s *stubConnector) CheckAvailability(context.Context, string) (*filemaker.Availability, error) {
	return s.availability, s.availabilityErr
}

func (s *stubConnector) CheckRegistration(context.Context, string, string) (bool, error) {
	return s.alreadyRegistered, s.checkErr
}

func (s *stubConnector) RegisterParticipant(context.Context, string, filemaker.Participant) (*filemaker.RegistrationResult, error) {
	s.registerCalls++
	return s.result, s.registerErr
}

func (s *stubConnector) ManageAllowlist(context.Context, string, string) ([]string, error) {
	return nil, filemaker.ErrUnsupportedOperation
}

func (s *stubConnector) FetchRemoteLogs(context.Context, int) ([]filemaker.RemoteLogEntry, error) {
	return nil, filemaker.ErrUnsupportedOperation
}

type recordingNotifier struct {
	sent []string
	err  error
}

func (n *recordingNotifier) SendConfirmation(_ context.Context, p filemaker.Participant, _ *entities.Workshop, _ *filemaker.RegistrationResult) error {
	n.sent = append(n.sent, p.Email)
	return n.err
}

type fixture struct {
	handler   *Handler
	stub      *stubConnector
	notifier  *recordingNotifier
	logger    *logging.Service
	errorRepo *errorlog.Repository
}

func setupHandler(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entities.Workshop{}, &entities.Session{},
		&entities.ErrorLogEntry{}, &entities.Setting{},
	))

	repo := workshops.NewRepository(db)
	startDate := time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	require.NoError(t, repo.Upsert(&entities.Workshop{
		WorkshopNumber:       "WS1",
		Title:                "Robotics",
		StartDate:            &startDate,
		MaxRegistrationCount: 30,
		Status:               entities.WorkshopStatusActive,
		Approved:             entities.WorkshopApprovedYes,
	}))

	store := settingsstore.New(settings.NewRepository(db))
	errorRepo := errorlog.NewRepository(db)
	logger := logging.NewService(errorRepo)
	stub := &stubConnector{
		availability: &filemaker.Availability{Available: true, CurrentCount: 12, MaxCount: 30},
		result:       &filemaker.RegistrationResult{Confirmed: true, ConfirmationID: "C-1"},
	}
	notifier := &recordingNotifier{}

	handler := NewHandler(repo, store, logger, notifier)
	handler.connect = func() (filemaker.Connector, error) { return stub, nil }

	return &fixture{handler: handler, stub: stub, notifier: notifier, logger: logger, errorRepo: errorRepo}
}

func validParticipant() filemaker.Participant {
	return filemaker.Participant{
		FirstName: "Pat",
		LastName:  "Lee",
		Email:     "pat@example.edu",
	}
}

func TestHandler_Validate(t *testing.T) {
	fx := setupHandler(t)

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, fx.handler.Validate(validParticipant()))
	})

	t.Run("missing fields", func(t *testing.T) {
		err := fx.handler.Validate(filemaker.Participant{})

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Fields, "first_name")
		assert.Contains(t, validationErr.Fields, "last_name")
		assert.Contains(t, validationErr.Fields, "email")
	})

	t.Run("malformed email", func(t *testing.T) {
		p := validParticipant()
		p.Email = "not-an-email"
		err := fx.handler.Validate(p)

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Fields, "email")
	})
}

func TestHandler_Register(t *testing.T) {
	t.Run("confirmed and notified", func(t *testing.T) {
		fx := setupHandler(t)

		result, err := fx.handler.Register(context.Background(), "WS1", validParticipant())
		require.NoError(t, err)
		assert.True(t, result.Confirmed)
		assert.Equal(t, "C-1", result.ConfirmationID)
		assert.Equal(t, []string{"pat@example.edu"}, fx.notifier.sent)
	})

	t.Run("invalid payload never reaches the source", func(t *testing.T) {
		fx := setupHandler(t)

		_, err := fx.handler.Register(context.Background(), "WS1", filemaker.Participant{})

		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Zero(t, fx.stub.registerCalls)
	})

	t.Run("unknown workshop", func(t *testing.T) {
		fx := setupHandler(t)

		_, err := fx.handler.Register(context.Background(), "WS404", validParticipant())
		assert.ErrorIs(t, err, filemaker.ErrWorkshopNotFound)
		assert.Zero(t, fx.stub.registerCalls)
	})

	t.Run("full workshop rejected before registering", func(t *testing.T) {
		fx := setupHandler(t)
		fx.stub.availability = &filemaker.Availability{Available: false, CurrentCount: 30, MaxCount: 30}

		_, err := fx.handler.Register(context.Background(), "WS1", validParticipant())
		assert.ErrorIs(t, err, ErrWorkshopFull)
		assert.Zero(t, fx.stub.registerCalls)
		assert.Empty(t, fx.notifier.sent)
	})

	t.Run("duplicate registration rejected", func(t *testing.T) {
		fx := setupHandler(t)
		fx.stub.alreadyRegistered = true

		_, err := fx.handler.Register(context.Background(), "WS1", validParticipant())
		assert.ErrorIs(t, err, ErrAlreadyRegistered)
		assert.Zero(t, fx.stub.registerCalls)
	})

	t.Run("failed duplicate check does not block registration", func(t *testing.T) {
		fx := setupHandler(t)
		fx.stub.checkErr = &filemaker.TransportError{Action: "check_registration", Err: errors.New("timeout")}

		result, err := fx.handler.Register(context.Background(), "WS1", validParticipant())
		require.NoError(t, err)
		assert.True(t, result.Confirmed)
		assert.Equal(t, 1, fx.stub.registerCalls)
	})

	t.Run("source failure is not retried", func(t *testing.T) {
		fx := setupHandler(t)
		fx.stub.registerErr = &filemaker.TransportError{Action: "register_participant", Err: errors.New("timeout")}

		_, err := fx.handler.Register(context.Background(), "WS1", validParticipant())
		require.Error(t, err)
		assert.Equal(t, 1, fx.stub.registerCalls)
		assert.Empty(t, fx.notifier.sent)
	})

	t.Run("declined registration sends no confirmation", func(t *testing.T) {
		fx := setupHandler(t)
		fx.stub.result = &filemaker.RegistrationResult{Confirmed: false, Message: "duplicate registration"}

		result, err := fx.handler.Register(context.Background(), "WS1", validParticipant())
		require.NoError(t, err)
		assert.False(t, result.Confirmed)
		assert.Empty(t, fx.notifier.sent)
	})

	t.Run("notifier failure does not undo registration", func(t *testing.T) {
		fx := setupHandler(t)
		fx.notifier.err = errors.New("smtp unreachable")

		result, err := fx.handler.Register(context.Background(), "WS1", validParticipant())
		require.NoError(t, err)
		assert.True(t, result.Confirmed)

		entries, err := fx.errorRepo.ListByLevel(entities.LogLevelWarning, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Contains(t, entries[0].Message, "notification")
	})
}
