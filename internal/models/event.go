package models

import "time"

type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// TicketEvent is the message published when a ticket changes. It carries
// identifiers and status only; title and customer stay out of the broker.
type TicketEvent struct {
	Type       EventType    `json:"type"`
	TicketID   string       `json:"ticket_id"`
	Status     TicketStatus `json:"status"`
	OccurredAt time.Time    `json:"occurred_at"`
}

func NewTicketEvent(eventType EventType, ticket Ticket) TicketEvent {
	return TicketEvent{
		Type:       eventType,
		TicketID:   ticket.ID,
		Status:     ticket.Status,
		OccurredAt: time.Now().UTC(),
	}
}
