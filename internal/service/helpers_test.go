package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"frontdesk-service/internal/audit"
	"frontdesk-service/internal/models"
	"frontdesk-service/internal/store/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var frontDesk = models.Actor{UserID: 7, Username: "desk", Role: models.RoleFrontDesk, ClientIP: "10.0.0.8"}

type recordingPublisher struct {
	mu           sync.Mutex
	reservations []*models.ReservationEvent
	invoices     []*models.InvoiceEvent
}

func (p *recordingPublisher) PublishReservationEvent(_ context.Context, e *models.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reservations = append(p.reservations, e)
	return nil
}

func (p *recordingPublisher) PublishInvoiceEvent(_ context.Context, e *models.InvoiceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invoices = append(p.invoices, e)
	return nil
}

func (p *recordingPublisher) invoiceEventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.invoices))
	for i, e := range p.invoices {
		types[i] = e.EventType
	}
	return types
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memIdempotency) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type fixture struct {
	store        *storetest.MemStore
	reservations *ReservationService
	invoices     *InvoiceService
	events       *recordingPublisher
	idempotency  *memIdempotency
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := storetest.New()
	st.AddRoom(models.Room{ID: 101, RoomNumber: "101", Floor: 1, RoomTypeID: 3})
	st.AddRoom(models.Room{ID: 102, RoomNumber: "102", Floor: 1, RoomTypeID: 3})
	st.AddRoom(models.Room{ID: 201, RoomNumber: "201", Floor: 2, RoomTypeID: 5})
	st.AddService(models.HotelService{ID: 1, Name: "Breakfast", Price: dec("250")})
	st.AddService(models.HotelService{ID: 2, Name: "Airport transfer", Price: dec("900.50")})

	events := &recordingPublisher{}
	idem := &memIdempotency{keys: map[string]bool{}}
	writer := audit.NewWriter(zap.NewNop())

	numbers := NewInvoiceNumberer("INV-", 3)
	numbers.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	numbers.logger = zap.NewNop()

	invoices := NewInvoiceService(st, writer, numbers, idem, time.Hour, events)
	invoices.logger = zap.NewNop()
	reservations := NewReservationService(st, invoices, writer, events)
	reservations.logger = zap.NewNop()

	return &fixture{
		store:        st,
		reservations: reservations,
		invoices:     invoices,
		events:       events,
		idempotency:  idem,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func roomRef(id int64) *int64 {
	return &id
}

func statusRef(s models.ReservationStatus) *models.ReservationStatus {
	return &s
}

// book creates a reservation on room with the given status.
func (f *fixture) book(t *testing.T, room int64, checkIn, checkOut string, status models.ReservationStatus) *models.Reservation {
	t.Helper()
	res, err := f.reservations.CreateReservation(context.Background(), frontDesk, &CreateReservationRequest{
		CustomerID:   11,
		RoomID:       roomRef(room),
		CheckInDate:  checkIn,
		CheckOutDate: checkOut,
		GuestCount:   2,
		Status:       statusRef(status),
		TotalAmount:  dec("5000"),
	})
	require.NoError(t, err)
	return res.Reservation
}

func (f *fixture) reservation(t *testing.T, id int64) *models.Reservation {
	t.Helper()
	r, err := f.store.Queries().GetReservation(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (f *fixture) room(t *testing.T, id int64) *models.Room {
	t.Helper()
	room, err := f.store.Queries().GetRoom(context.Background(), id)
	require.NoError(t, err)
	return room
}

func (f *fixture) invoice(t *testing.T, id int64) *models.Invoice {
	t.Helper()
	inv, err := f.store.Queries().GetInvoice(context.Background(), id)
	require.NoError(t, err)
	return inv
}

func actions(entries []models.AuditLogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ActionType
	}
	return out
}
