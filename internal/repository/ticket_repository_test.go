package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/guildtools/ticketbot/internal/domain"
	apperrors "github.com/guildtools/ticketbot/pkg/util"
)

// fakeTicketDB implements dbtx for the ticket insert path. It keeps
// rows keyed by id and honours the ON CONFLICT (id) DO NOTHING clause
// the way postgres would.
type fakeTicketDB struct {
	mu        sync.Mutex
	rows      map[string]bool
	execCalls int

	// remaining Exec calls to fail with a connection error.
	failing int
	// when set, the failing call writes the row before the
	// connection drops, so the ack is lost but the insert landed.
	writeBeforeFail bool
}

var _ dbtx = (*fakeTicketDB)(nil)

func connectionFailure() error {
	return &pgconn.PgError{Code: "08006", Message: "connection failure"}
}

func (f *fakeTicketDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execCalls++

	insert := func() pgconn.CommandTag {
		id := args[0].(string)
		if f.rows[id] {
			return pgconn.NewCommandTag("INSERT 0 0")
		}
		f.rows[id] = true
		return pgconn.NewCommandTag("INSERT 0 1")
	}

	if f.failing > 0 {
		f.failing--
		if f.writeBeforeFail {
			insert()
		}
		return pgconn.CommandTag{}, connectionFailure()
	}
	return insert(), nil
}

func (f *fakeTicketDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("unexpected Query")
}

func (f *fakeTicketDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("unexpected QueryRow")
}

func testRetryer() *Retryer {
	return NewRetryer(RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, nil, nil)
}

func newTicket(id string) *domain.Ticket {
	return &domain.Ticket{
		ID:        id,
		ActorID:   "actor-1",
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		Type:      "support",
		Status:    domain.TicketStatusOpen,
		CreatedAt: time.Now().UTC(),
	}
}

func TestCreateSucceedsAfterTransientFailures(t *testing.T) {
	db := &fakeTicketDB{rows: map[string]bool{}, failing: 2}
	repo := &ticketRepository{db: db, retry: testRetryer()}

	if err := repo.Create(context.Background(), newTicket("tick-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if db.execCalls != 3 {
		t.Errorf("exec calls = %d, want 3", db.execCalls)
	}
	if len(db.rows) != 1 {
		t.Errorf("rows = %d, want 1", len(db.rows))
	}
}

func TestCreateRetryAfterLostAckKeepsSingleRow(t *testing.T) {
	// The first attempt commits but the connection drops before the
	// ack arrives; the retried insert must not produce a second row.
	db := &fakeTicketDB{rows: map[string]bool{}, failing: 1, writeBeforeFail: true}
	repo := &ticketRepository{db: db, retry: testRetryer()}

	if err := repo.Create(context.Background(), newTicket("tick-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if db.execCalls != 2 {
		t.Errorf("exec calls = %d, want 2", db.execCalls)
	}
	if len(db.rows) != 1 {
		t.Errorf("rows = %d, want 1", len(db.rows))
	}
}

func TestCreateExhaustedRetriesSurfaceStoreUnavailable(t *testing.T) {
	db := &fakeTicketDB{rows: map[string]bool{}, failing: 10}
	repo := &ticketRepository{db: db, retry: testRetryer()}

	err := repo.Create(context.Background(), newTicket("tick-1"))
	if !apperrors.HasCode(err, apperrors.CodeStoreUnavailable) {
		t.Fatalf("Create() error = %v, want %s", err, apperrors.CodeStoreUnavailable)
	}
	if db.execCalls != 4 {
		t.Errorf("exec calls = %d, want 4", db.execCalls)
	}
	if len(db.rows) != 0 {
		t.Errorf("rows = %d, want 0", len(db.rows))
	}
}
