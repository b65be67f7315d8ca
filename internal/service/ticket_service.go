package services

import (
	"context"
	"log"

	"helpdesk/internal/models"
)

type TicketRepository interface {
	Load(context.Context) ([]models.Ticket, error)
	Append(context.Context, models.Ticket) (models.Ticket, error)
	UpdateStatus(context.Context, string, models.TicketStatus) (models.Ticket, error)
}

// EventPublisher announces ticket changes to other services. Delivery is
// best effort: a failed publish never fails the request that caused it.
type EventPublisher interface {
	Publish(ctx context.Context, event models.TicketEvent) error
}

type TicketService struct {
	repo      TicketRepository
	publisher EventPublisher
}

func NewTicketService(repo TicketRepository, publisher EventPublisher) *TicketService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &TicketService{
		repo:      repo,
		publisher: publisher,
	}
}

// ListTickets returns the tickets matching every non-empty field of filter.
func (s *TicketService) ListTickets(ctx context.Context, filter models.TicketFilter) ([]models.Ticket, error) {
	tickets, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	if filter.IsEmpty() {
		return tickets, nil
	}

	matched := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if filter.Matches(t) {
			matched = append(matched, t)
		}
	}

	return matched, nil
}

func (s *TicketService) CreateTicket(ctx context.Context, req models.CreateTicketRequest) (models.Ticket, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.Ticket{}, err
	}

	ticket, err := s.repo.Append(ctx, req.Ticket())
	if err != nil {
		return models.Ticket{}, err
	}

	s.publish(ctx, models.NewTicketEvent(models.EventTicketCreated, ticket))
	return ticket, nil
}

func (s *TicketService) UpdateTicketStatus(ctx context.Context, id string, req models.StatusUpdateRequest) (models.Ticket, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.Ticket{}, err
	}

	ticket, err := s.repo.UpdateStatus(ctx, id, models.TicketStatus(req.Status))
	if err != nil {
		return models.Ticket{}, err
	}

	s.publish(ctx, models.NewTicketEvent(models.EventTicketStatusChanged, ticket))
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event models.TicketEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("[EVENTS] Failed to publish %s for ticket %s: %v", event.Type, event.TicketID, err)
	}
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.TicketEvent) error { return nil }
