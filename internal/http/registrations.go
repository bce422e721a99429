package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roe24/workshop-bridge/internal/filemaker"
	"github.com/roe24/workshop-bridge/internal/registration"
	"github.com/roe24/workshop-bridge/internal/tasks"
)

// RegistrationsController accepts registration requests and forwards
// them to the source through the registration handler.
type RegistrationsController struct {
	handler    *registration.Handler
	taskClient *tasks.Client
}

func NewRegistrationsController(handler *registration.Handler, taskClient *tasks.Client) *RegistrationsController {
	return &RegistrationsController{handler: handler, taskClient: taskClient}
}

// RegistrationRequest is the POST body for a registration.
type RegistrationRequest struct {
	WorkshopNumber string `json:"workshop_number" binding:"required"`
	filemaker.Participant
}

// Create submits one registration. The attempt is made at most once;
// on ambiguous failure the client is told to verify before retrying.
func (r *RegistrationsController) Create(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := r.handler.Register(c.Request.Context(), req.WorkshopNumber, req.Participant)
	if err != nil {
		var validationErr *registration.ValidationError
		var transportErr *filemaker.TransportError
		switch {
		case errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation failed",
				Code:    "invalid_registration",
				Details: validationErr.Fields,
			})
		case errors.Is(err, filemaker.ErrWorkshopNotFound):
			respondNotFound(c, "workshop")
		case errors.Is(err, registration.ErrWorkshopFull):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: "workshop has no open seats",
				Code:  "workshop_full",
			})
		case errors.Is(err, registration.ErrAlreadyRegistered):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: "this email is already registered for the workshop",
				Code:  "already_registered",
			})
		case errors.Is(err, filemaker.ErrUnsupportedOperation):
			respondError(c, http.StatusNotImplemented, "registration not supported by the active connector")
		case errors.Is(err, filemaker.ErrNotConfigured):
			respondError(c, http.StatusServiceUnavailable, "source connector is not configured")
		case errors.As(err, &transportErr):
			// The request may or may not have landed on the source.
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Error: "registration could not be confirmed, please verify before retrying",
				Code:  "source_unreachable",
			})
		default:
			respondInternalError(c, err, "register participant")
		}
		return
	}

	if !result.Confirmed {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: result.Message,
			Code:  "registration_declined",
		})
		return
	}

	// Catch the cached seat count up with the source in the background.
	if r.taskClient != nil {
		if _, err := r.taskClient.Add(tasks.RefreshWorkshopTask{WorkshopNumber: req.WorkshopNumber}).Save(); err != nil {
			log.Printf("Failed to enqueue workshop refresh for %s: %v", req.WorkshopNumber, err)
		}
	}

	respondCreated(c, result)
}
