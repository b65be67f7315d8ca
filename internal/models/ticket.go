package models

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"helpdesk/utils/validator"
)

type TicketStatus string

const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in_progress"
	StatusClosed     TicketStatus = "closed"
)

// Ticket is a single support request. Status is open-ended: the constants
// above are the well-known values, not an exhaustive list.
type Ticket struct {
	ID        string       `json:"id"`
	Title     string       `json:"title" validate:"required,max=200"`
	Customer  string       `json:"customer" validate:"required,max=200"`
	Status    TicketStatus `json:"status" validate:"required,max=64"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Normalize trims surrounding whitespace from the text fields.
func (t *Ticket) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	t.Customer = strings.TrimSpace(t.Customer)
	t.Status = TicketStatus(strings.TrimSpace(string(t.Status)))
}

// Validate checks the fields a stored ticket must always carry.
func (t Ticket) Validate() error {
	return validateStruct(t)
}

// CreateTicketRequest is the body of POST /tickets.
type CreateTicketRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Customer string `json:"customer" validate:"required,max=200"`
	Status   string `json:"status" validate:"omitempty,max=64"`
}

// Normalize trims surrounding whitespace so that blank values fail the
// required check.
func (r *CreateTicketRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Customer = strings.TrimSpace(r.Customer)
	r.Status = strings.TrimSpace(r.Status)
}

func (r CreateTicketRequest) Validate() error {
	return validateStruct(r)
}

// Ticket builds the ticket to store. ID and CreatedAt are left for the
// repository to assign.
func (r CreateTicketRequest) Ticket() Ticket {
	status := TicketStatus(r.Status)
	if status == "" {
		status = StatusOpen
	}
	return Ticket{
		Title:    r.Title,
		Customer: r.Customer,
		Status:   status,
	}
}

// StatusUpdateRequest is the body of PUT /tickets/{id}/status.
type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required,max=64"`
}

func (r *StatusUpdateRequest) Normalize() {
	r.Status = strings.TrimSpace(r.Status)
}

func (r StatusUpdateRequest) Validate() error {
	return validateStruct(r)
}

// TicketFilter is the closed set of list filters. Each field is compared
// for exact equality against the ticket field of the same name; an empty
// field matches everything.
type TicketFilter struct {
	Status   TicketStatus
	Customer string
}

var filterParams = map[string]func(*TicketFilter, string){
	"status":   func(f *TicketFilter, v string) { f.Status = TicketStatus(v) },
	"customer": func(f *TicketFilter, v string) { f.Customer = v },
}

// rejectedParams name query parameters that used to carry filter
// expressions. They are refused so a client never mistakes an unfiltered
// list for a filtered one.
var rejectedParams = map[string]bool{
	"filter": true,
}

// ParseTicketFilter maps query parameters onto a TicketFilter. Values are
// used as given, without trimming. Unrelated parameters are ignored.
func ParseTicketFilter(query url.Values) (TicketFilter, error) {
	var filter TicketFilter
	var rejected []string

	for name, values := range query {
		if rejectedParams[name] {
			rejected = append(rejected, name)
			continue
		}
		set, ok := filterParams[name]
		if !ok {
			continue
		}
		if len(values) > 1 {
			return TicketFilter{}, NewValidationError(name + " must be given at most once")
		}
		set(&filter, values[0])
	}

	if len(rejected) > 0 {
		sort.Strings(rejected)
		details := make([]string, 0, len(rejected))
		for _, name := range rejected {
			details = append(details, "unsupported query parameter "+name)
		}
		return TicketFilter{}, NewValidationError(details...)
	}

	return filter, nil
}

func (f TicketFilter) Matches(t Ticket) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Customer != "" && t.Customer != f.Customer {
		return false
	}
	return true
}

func (f TicketFilter) IsEmpty() bool {
	return f == TicketFilter{}
}

func validateStruct(s interface{}) error {
	err := validator.GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	return NewValidationError(validator.ParseErrors(err)...)
}
