// Package registration takes a participant from validation through a
// live seat check to a single registration attempt against the source.
//
// The attempt is never retried automatically: a timeout after the
// source accepted the write would otherwise risk registering the same
// participant twice. Confirmation is sent only after the source has
// confirmed the registration.
package registration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/roe24/workshop-bridge/internal/database/workshops"
	"github.com/roe24/workshop-bridge/internal/entities"
	"github.com/roe24/workshop-bridge/internal/filemaker"
	"github.com/roe24/workshop-bridge/internal/logging"
	"github.com/roe24/workshop-bridge/internal/settingsstore"
)

// ErrWorkshopFull indicates the live seat check found no open seats.
var ErrWorkshopFull = errors.New("workshop has no open seats")

// ErrAlreadyRegistered indicates the email already holds a registration
// for the workshop.
var ErrAlreadyRegistered = errors.New("participant is already registered for this workshop")

// ValidationError carries per-field validation failures.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, reason := range e.Fields {
		parts = append(parts, field+": "+reason)
	}
	return "invalid registration: " + strings.Join(parts, "; ")
}

// Notifier delivers the post-registration confirmation. Delivery
// failures never undo a confirmed registration.
type Notifier interface {
	SendConfirmation(ctx context.Context, p filemaker.Participant, workshop *entities.Workshop, result *filemaker.RegistrationResult) error
}

// Handler processes registration requests.
type Handler struct {
	repo     *workshops.Repository
	store    *settingsstore.SettingsStore
	logger   *logging.Service
	notifier Notifier

	connect func() (filemaker.Connector, error)
}

// NewHandler creates a registration handler. notifier may be nil.
func NewHandler(repo *workshops.Repository, store *settingsstore.SettingsStore, logger *logging.Service, notifier Notifier) *Handler {
	return &Handler{
		repo:     repo,
		store:    store,
		logger:   logger,
		notifier: notifier,
		connect:  store.BuildConnector,
	}
}

// Validate checks the participant payload without touching the source.
func (h *Handler) Validate(p filemaker.Participant) error {
	fields := map[string]string{}

	if strings.TrimSpace(p.FirstName) == "" {
		fields["first_name"] = "required"
	}
	if strings.TrimSpace(p.LastName) == "" {
		fields["last_name"] = "required"
	}
	if strings.TrimSpace(p.Email) == "" {
		fields["email"] = "required"
	} else if _, err := mail.ParseAddress(p.Email); err != nil {
		fields["email"] = "not a valid email address"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Register validates the participant, verifies seat availability live,
// and submits exactly one registration attempt.
func (h *Handler) Register(ctx context.Context, workshopNumber string, p filemaker.Participant) (*filemaker.RegistrationResult, error) {
	if err := h.Validate(p); err != nil {
		return nil, err
	}

	workshop, err := h.repo.GetByNumber(workshopNumber)
	if err != nil {
		return nil, filemaker.ErrWorkshopNotFound
	}

	connector, err := h.connect()
	if err != nil {
		h.logger.Error("registration connector unavailable", map[string]any{
			"workshop": workshopNumber,
			"error":    err.Error(),
		})
		return nil, err
	}
	defer closeConnector(connector)

	// The cached count may be hours old; only a live check decides.
	availability, err := connector.CheckAvailability(ctx, workshopNumber)
	if err != nil {
		h.logger.Error("availability check failed", map[string]any{
			"workshop": workshopNumber,
			"error":    err.Error(),
		})
		return nil, err
	}
	if !availability.Available {
		return nil, ErrWorkshopFull
	}

	// Duplicate guard where the transport supports it. A failed check
	// never blocks the registration; the source enforces its own rules.
	registered, err := connector.CheckRegistration(ctx, workshopNumber, p.Email)
	if err != nil && !errors.Is(err, filemaker.ErrUnsupportedOperation) {
		h.logger.Warning("registration duplicate check failed", map[string]any{
			"workshop": workshopNumber,
			"email":    p.Email,
			"error":    err.Error(),
		})
	}
	if err == nil && registered {
		return nil, ErrAlreadyRegistered
	}

	result, err := connector.RegisterParticipant(ctx, workshopNumber, p)
	if err != nil {
		h.logger.Error("registration failed", map[string]any{
			"workshop": workshopNumber,
			"email":    p.Email,
			"error":    err.Error(),
		})
		return nil, err
	}
	if !result.Confirmed {
		h.logger.Warning("registration declined by source", map[string]any{
			"workshop": workshopNumber,
			"email":    p.Email,
			"message":  result.Message,
		})
		return result, nil
	}

	h.logger.Info("registration confirmed", map[string]any{
		"workshop":     workshopNumber,
		"email":        p.Email,
		"confirmation": result.ConfirmationID,
	})

	if h.notifier != nil {
		if err := h.notifier.SendConfirmation(ctx, p, workshop, result); err != nil {
			// Delivery failure is logged, never surfaced: the
			// registration already stands on the source.
			h.logger.Warning("confirmation notification failed", map[string]any{
				"workshop": workshopNumber,
				"email":    p.Email,
				"error":    err.Error(),
			})
		}
	}

	return result, nil
}

func closeConnector(c filemaker.Connector) {
	if closer, ok := c.(io.Closer); ok {
		_ = closer.Close()
	}
}

// LogNotifier records confirmations in the operational log. It stands
// in until an outbound mailer is configured.
type LogNotifier struct {
	logger *logging.Service
	store  *settingsstore.SettingsStore
}

func NewLogNotifier(logger *logging.Service, store *settingsstore.SettingsStore) *LogNotifier {
	return &LogNotifier{logger: logger, store: store}
}

func (n *LogNotifier) SendConfirmation(_ context.Context, p filemaker.Participant, workshop *entities.Workshop, result *filemaker.RegistrationResult) error {
	n.logger.Info("confirmation notice", map[string]any{
		"to":           p.Email,
		"workshop":     workshop.WorkshopNumber,
		"title":        workshop.Title,
		"confirmation": result.ConfirmationID,
		"from":         fmt.Sprintf("%s <%s>", n.store.GetCompanyName(), n.store.GetCompanyEmail()),
	})
	return nil
}
