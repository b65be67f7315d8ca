package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"helpdesk/internal/models"

	"github.com/gorilla/mux"
)

type TicketService interface {
	ListTickets(context.Context, models.TicketFilter) ([]models.Ticket, error)
	CreateTicket(context.Context, models.CreateTicketRequest) (models.Ticket, error)
	UpdateTicketStatus(context.Context, string, models.StatusUpdateRequest) (models.Ticket, error)
}

type TicketHandler struct {
	service      TicketService
	maxBodyBytes int64
}

func NewTicketHandler(service TicketService, maxBodyBytes int64) *TicketHandler {
	return &TicketHandler{
		service:      service,
		maxBodyBytes: maxBodyBytes,
	}
}

// Register mounts the ticket routes on router.
func (h *TicketHandler) Register(router *mux.Router) {
	router.HandleFunc("/tickets", h.ListTickets).Methods(http.MethodGet)
	router.HandleFunc("/tickets", h.CreateTicket).Methods(http.MethodPost)
	router.HandleFunc("/tickets/{id}/status", h.UpdateTicketStatus).Methods(http.MethodPut)
}

// ListTickets returns all tickets, optionally narrowed by exact-match query
// filters.
func (h *TicketHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	filter, err := models.ParseTicketFilter(r.URL.Query())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	tickets, err := h.service.ListTickets(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tickets)
}

// CreateTicket stores a new ticket and answers with its id.
func (h *TicketHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTicketRequest
	if err := h.decode(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	ticket, err := h.service.CreateTicket(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, models.CreateTicketResponse{OK: true, ID: ticket.ID})
}

// UpdateTicketStatus replaces the status of an existing ticket.
func (h *TicketHandler) UpdateTicketStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		handleServiceError(w, models.NewValidationError("id field is required"))
		return
	}

	var req models.StatusUpdateRequest
	if err := h.decode(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	ticket, err := h.service.UpdateTicketStatus(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ticket)
}

// decode reads a single JSON object from the body. Any decoding problem is
// reported as a validation error; the body itself never reaches the logs.
func (h *TicketHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return models.NewValidationError("request body too large")
		case errors.Is(err, io.EOF):
			return models.NewValidationError("request body is required")
		default:
			return models.NewValidationError("request body must be a JSON object")
		}
	}
	if dec.More() {
		return models.NewValidationError("request body must contain a single JSON object")
	}

	return nil
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[HTTP] Failed to write response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, models.ErrorResponse{Error: message})
}

func handleServiceError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		respondWithJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:   models.ErrValidation.Error(),
			Details: validationErr.Details,
		})
		return
	}

	if errors.Is(err, models.ErrValidation) {
		respondWithError(w, http.StatusBadRequest, models.ErrValidation.Error())
		return
	}

	if errors.Is(err, models.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "ticket not found")
		return
	}

	log.Printf("[HTTP] Request failed: %v", err)
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}
