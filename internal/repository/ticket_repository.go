package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"helpdesk/internal/models"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"golang.org/x/sync/semaphore"
)

const dirPerms = 0o750

// TicketRepository keeps the whole ticket collection in one JSON file.
// Every operation holds the same single-slot semaphore for its full
// load-modify-persist sequence, so concurrent callers are serialized and a
// reader never sees a half-written file.
type TicketRepository struct {
	path string
	dir  string
	sem  *semaphore.Weighted

	newID func() string
	now   func() time.Time
}

func NewTicketRepository(path string) *TicketRepository {
	return &TicketRepository{
		path:  path,
		dir:   filepath.Dir(path),
		sem:   semaphore.NewWeighted(1),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Load returns every ticket in insertion order. A missing file is an empty
// collection.
func (r *TicketRepository) Load(ctx context.Context) ([]models.Ticket, error) {
	release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return r.read()
}

// Append assigns an id and creation time, stores the ticket and returns the
// stored copy.
func (r *TicketRepository) Append(ctx context.Context, ticket models.Ticket) (models.Ticket, error) {
	ticket.Normalize()
	if ticket.Status == "" {
		ticket.Status = models.StatusOpen
	}
	ticket.ID = ""
	if err := ticket.Validate(); err != nil {
		return models.Ticket{}, err
	}

	release, err := r.acquire(ctx)
	if err != nil {
		return models.Ticket{}, err
	}
	defer release()

	tickets, err := r.read()
	if err != nil {
		return models.Ticket{}, err
	}

	ticket.ID = r.uniqueID(tickets)
	ticket.CreatedAt = r.now().UTC()

	tickets = append(tickets, ticket)
	if err := r.write(tickets); err != nil {
		return models.Ticket{}, err
	}

	return ticket, nil
}

// UpdateStatus changes the status of one ticket and leaves every other
// field untouched. Surrounding whitespace in status is dropped.
func (r *TicketRepository) UpdateStatus(ctx context.Context, id string, status models.TicketStatus) (models.Ticket, error) {
	status = models.TicketStatus(strings.TrimSpace(string(status)))
	if status == "" {
		return models.Ticket{}, models.NewValidationError("status field is required")
	}

	release, err := r.acquire(ctx)
	if err != nil {
		return models.Ticket{}, err
	}
	defer release()

	tickets, err := r.read()
	if err != nil {
		return models.Ticket{}, err
	}

	idx := -1
	for i := range tickets {
		if tickets[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Ticket{}, models.ErrNotFound
	}

	if tickets[idx].Status == status {
		return tickets[idx], nil
	}

	tickets[idx].Status = status
	if err := r.write(tickets); err != nil {
		return models.Ticket{}, err
	}

	return tickets[idx], nil
}

func (r *TicketRepository) acquire(ctx context.Context) (func(), error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for ticket store: %w", err)
	}
	return func() { r.sem.Release(1) }, nil
}

// uniqueID draws random ids until one is not already in use.
func (r *TicketRepository) uniqueID(tickets []models.Ticket) string {
	taken := make(map[string]struct{}, len(tickets))
	for _, t := range tickets {
		taken[t.ID] = struct{}{}
	}
	for {
		id := r.newID()
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}

func (r *TicketRepository) read() ([]models.Ticket, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Ticket{}, nil
		}
		return nil, r.storageError("read", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []models.Ticket{}, nil
	}

	var tickets []models.Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		return nil, r.storageError("decode", err)
	}

	if tickets == nil {
		tickets = []models.Ticket{}
	}

	return tickets, nil
}

func (r *TicketRepository) write(tickets []models.Ticket) error {
	data, err := json.MarshalIndent(tickets, "", "  ")
	if err != nil {
		return r.storageError("encode", err)
	}

	if err := os.MkdirAll(r.dir, dirPerms); err != nil {
		return r.storageError("prepare directory", err)
	}

	if err := atomic.WriteFile(r.path, bytes.NewReader(data)); err != nil {
		return r.storageError("write", err)
	}

	return nil
}

// storageError wraps err as ErrStorage with the data directory removed from
// the message, so that logs and callers never see where the file lives.
func (r *TicketRepository) storageError(op string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%w: %s: %v", models.ErrStorage, op, pathErr.Err)
	}

	msg := err.Error()
	if r.dir != "." && r.dir != "" {
		msg = strings.ReplaceAll(msg, r.dir+string(filepath.Separator), "")
	}
	return fmt.Errorf("%w: %s: %s", models.ErrStorage, op, msg)
}
