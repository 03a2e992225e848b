package controls

import (
	"context"
	"testing"
	"time"

	"github.com/guildtools/ticketbot/internal/domain"
	apperrors "github.com/guildtools/ticketbot/pkg/util"
)

type fakeControlRepo struct {
	records map[string]domain.ControlRecord
}

func newFakeControlRepo() *fakeControlRepo {
	return &fakeControlRepo{records: make(map[string]domain.ControlRecord)}
}

func (f *fakeControlRepo) Insert(ctx context.Context, record *domain.ControlRecord) error {
	f.records[record.ControlID] = *record
	return nil
}

func (f *fakeControlRepo) Get(ctx context.Context, controlID string) (*domain.ControlRecord, error) {
	record, ok := f.records[controlID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (f *fakeControlRepo) Delete(ctx context.Context, controlID string) error {
	delete(f.records, controlID)
	return nil
}

func (f *fakeControlRepo) DeleteByTicket(ctx context.Context, ticketID string) error {
	for id, record := range f.records {
		if record.TicketID != nil && *record.TicketID == ticketID {
			delete(f.records, id)
		}
	}
	return nil
}

func (f *fakeControlRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.ControlRecord, error) {
	var result []domain.ControlRecord
	for _, record := range f.records {
		if record.TicketID != nil && *record.TicketID == ticketID {
			result = append(result, record)
		}
	}
	return result, nil
}

func TestRegisterThenResolve(t *testing.T) {
	repo := newFakeControlRepo()
	registry := NewRegistry(repo, nil, time.Minute, nil)

	ticketID := "tck-1"
	record := &domain.ControlRecord{
		ControlID: CloseButtonControlID(ticketID),
		Kind:      domain.ControlKindCloseButton,
		GuildID:   "g1",
		TicketID:  &ticketID,
	}
	if err := registry.Register(context.Background(), record); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	resolved, err := registry.Resolve(context.Background(), record.ControlID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Kind != domain.ControlKindCloseButton {
		t.Fatalf("got kind %q, want %q", resolved.Kind, domain.ControlKindCloseButton)
	}
	if resolved.TicketID == nil || *resolved.TicketID != ticketID {
		t.Fatalf("got ticket id %v, want %q", resolved.TicketID, ticketID)
	}
}

func TestResolveUnknownIsStaleControl(t *testing.T) {
	registry := NewRegistry(newFakeControlRepo(), nil, time.Minute, nil)

	_, err := registry.Resolve(context.Background(), "close_deadbeef")
	if err == nil {
		t.Fatal("expected error for unknown control")
	}
	if !apperrors.HasCode(err, apperrors.CodeStaleControl) {
		t.Fatalf("got %v, want STALE_CONTROL", err)
	}
}

func TestDeregisterTicketRemovesAllControls(t *testing.T) {
	repo := newFakeControlRepo()
	registry := NewRegistry(repo, nil, time.Minute, nil)
	ctx := context.Background()

	ticketID := "tck-1"
	for _, id := range []string{CloseButtonControlID(ticketID), "extra_control"} {
		err := registry.Register(ctx, &domain.ControlRecord{
			ControlID: id,
			Kind:      domain.ControlKindCloseButton,
			GuildID:   "g1",
			TicketID:  &ticketID,
		})
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	if err := registry.DeregisterTicket(ctx, ticketID); err != nil {
		t.Fatalf("deregister failed: %v", err)
	}
	if _, err := registry.Resolve(ctx, CloseButtonControlID(ticketID)); !apperrors.HasCode(err, apperrors.CodeStaleControl) {
		t.Fatalf("expected stale control after deregister, got %v", err)
	}
}

func TestControlIDsAreStable(t *testing.T) {
	if PanelButtonControlID("g1", "Billing") != PanelButtonControlID("g1", "Billing") {
		t.Fatal("panel button id not deterministic")
	}
	if PanelButtonControlID("g1", "Billing") == PanelButtonControlID("g2", "Billing") {
		t.Fatal("panel button id should differ per guild")
	}
	if PanelButtonControlID("g1", "Billing") == PanelButtonControlID("g1", "Support") {
		t.Fatal("panel button id should differ per label")
	}
	if CloseButtonControlID("t1") == CloseButtonControlID("t2") {
		t.Fatal("close button id should differ per ticket")
	}
}
