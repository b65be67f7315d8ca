package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"helpdesk/internal/models"
)

func newTestRepository(t *testing.T) (*TicketRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "tickets.json")
	return NewTicketRepository(path), path
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	repo, _ := newTestRepository(t)

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Load on missing file = %#v, want empty non-nil slice", got)
	}
}

func TestLoad_EmptyFileIsEmpty(t *testing.T) {
	repo, path := newTestRepository(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load on blank file returned %d tickets", len(got))
	}
}

func TestLoad_MalformedFileIsStorageError(t *testing.T) {
	repo, path := newTestRepository(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"not":"an array"`), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := repo.Load(context.Background())
	if !errors.Is(err, models.ErrStorage) {
		t.Fatalf("Load error = %v, want ErrStorage", err)
	}
	if strings.Contains(err.Error(), filepath.Dir(path)) {
		t.Errorf("storage error leaks the data directory: %v", err)
	}
}

func TestLoad_UnreadablePathHidesDirectory(t *testing.T) {
	repo, path := newTestRepository(t)
	// A directory where the file should be makes ReadFile fail with a PathError.
	if err := os.MkdirAll(path, 0o750); err != nil {
		t.Fatal(err)
	}

	_, err := repo.Load(context.Background())
	if !errors.Is(err, models.ErrStorage) {
		t.Fatalf("Load error = %v, want ErrStorage", err)
	}
	if strings.Contains(err.Error(), path) {
		t.Errorf("storage error leaks the file path: %v", err)
	}
}

func TestAppend_AssignsIDAndCreatedAt(t *testing.T) {
	repo, _ := newTestRepository(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	got, err := repo.Append(context.Background(), models.Ticket{
		Title:    "Printer jammed",
		Customer: "ACME",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if got.ID == "" {
		t.Error("Append did not assign an id")
	}
	if !got.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, fixed)
	}
	if got.Status != models.StatusOpen {
		t.Errorf("Status = %q, want default %q", got.Status, models.StatusOpen)
	}

	all, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(all, []models.Ticket{got}) {
		t.Errorf("Load = %#v, want [%#v]", all, got)
	}
}

func TestAppend_KeepsInsertionOrder(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	var want []string
	for i := 0; i < 5; i++ {
		ticket, err := repo.Append(ctx, models.Ticket{Title: "t" + strconv.Itoa(i), Customer: "c"})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		want = append(want, ticket.ID)
	}

	all, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var got []string
	for _, ticket := range all {
		got = append(got, ticket.ID)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestAppend_RejectsMissingFields(t *testing.T) {
	repo, path := newTestRepository(t)

	cases := []models.Ticket{
		{Customer: "ACME"},
		{Title: "Printer jammed"},
		{},
		{Title: "   ", Customer: "\t"},
		{Title: "Printer jammed", Customer: " \n "},
	}
	for _, ticket := range cases {
		_, err := repo.Append(context.Background(), ticket)
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("Append(%#v) error = %v, want ErrValidation", ticket, err)
		}
	}

	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("invalid tickets must not create the store file, stat err = %v", err)
	}
}

func TestAppend_TrimsFields(t *testing.T) {
	repo, _ := newTestRepository(t)

	got, err := repo.Append(context.Background(), models.Ticket{
		Title:    "  Printer jammed ",
		Customer: "\tACME",
		Status:   "  ",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if got.Title != "Printer jammed" || got.Customer != "ACME" || got.Status != models.StatusOpen {
		t.Errorf("stored ticket = %#v, want trimmed fields and default status", got)
	}
}

func TestAppend_RetriesOnIDClash(t *testing.T) {
	repo, _ := newTestRepository(t)
	ids := []string{"same", "same", "other"}
	repo.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first, err := repo.Append(context.Background(), models.Ticket{Title: "a", Customer: "c"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := repo.Append(context.Background(), models.Ticket{Title: "b", Customer: "c"})
	if err != nil {
		t.Fatal(err)
	}

	if first.ID != "same" || second.ID != "other" {
		t.Errorf("ids = %q, %q, want same, other", first.ID, second.ID)
	}
}

func TestAppend_ConcurrentWritersLoseNothing(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Append(ctx, models.Ticket{Title: "t" + strconv.Itoa(i), Customer: "c"})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(all) != n {
		t.Fatalf("stored %d tickets, want %d", len(all), n)
	}

	seen := make(map[string]bool, n)
	for _, ticket := range all {
		if seen[ticket.ID] {
			t.Errorf("duplicate id %s", ticket.ID)
		}
		seen[ticket.ID] = true
	}
}

func TestUpdateStatus(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Append(ctx, models.Ticket{Title: "VPN down", Customer: "Globex"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := repo.UpdateStatus(ctx, created.ID, models.StatusInProgress)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	want := created
	want.Status = models.StatusInProgress
	if !reflect.DeepEqual(updated, want) {
		t.Errorf("UpdateStatus = %#v, want %#v", updated, want)
	}

	again, err := repo.UpdateStatus(ctx, created.ID, models.StatusInProgress)
	if err != nil {
		t.Fatalf("repeated UpdateStatus: %v", err)
	}
	if !reflect.DeepEqual(again, want) {
		t.Errorf("repeated UpdateStatus = %#v, want %#v", again, want)
	}

	all, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(all, []models.Ticket{want}) {
		t.Errorf("Load after update = %#v", all)
	}
}

func TestUpdateStatus_UnknownID(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.UpdateStatus(context.Background(), "missing", models.StatusClosed)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateStatus_EmptyStatus(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Append(ctx, models.Ticket{Title: "VPN down", Customer: "Globex"})
	if err != nil {
		t.Fatal(err)
	}

	for _, status := range []models.TicketStatus{"", "   ", "\t\n"} {
		_, err := repo.UpdateStatus(ctx, created.ID, status)
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("UpdateStatus(%q) error = %v, want ErrValidation", status, err)
		}
	}

	all, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(all, []models.Ticket{created}) {
		t.Errorf("Load after rejected updates = %#v, want %#v", all, []models.Ticket{created})
	}
}

func TestUpdateStatus_TrimsStatus(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Append(ctx, models.Ticket{Title: "VPN down", Customer: "Globex"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := repo.UpdateStatus(ctx, created.ID, " closed ")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != models.StatusClosed {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusClosed)
	}
}

func TestOperationsHonourCancelledContext(t *testing.T) {
	repo, _ := newTestRepository(t)

	// Hold the store so the next caller has to wait.
	release, err := repo.acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = repo.Load(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Load while locked = %v, want DeadlineExceeded", err)
	}
}
