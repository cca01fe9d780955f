// Package storetest provides an in-memory store.Queries implementation with
// transaction semantics, for tests of the layers above the database.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"frontdesk-service/internal/apperr"
	"frontdesk-service/internal/models"
	"frontdesk-service/internal/store"
)

// MemStore keeps every table in maps. RunInTx works on a copy of the data
// that replaces the committed state only when fn succeeds, so a failing
// operation leaves nothing behind. Transactions are serialized.
type MemStore struct {
	mu       sync.Mutex
	data     *tables
	failures map[string]error
	now      func() time.Time
}

// New returns an empty MemStore.
func New() *MemStore {
	return &MemStore{
		data:     newTables(),
		failures: map[string]error{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FailOn makes every call of the named Queries method return err until
// cleared with a nil err.
func (m *MemStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// AddRoom seeds a room.
func (m *MemStore) AddRoom(room models.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room.Status == "" {
		room.Status = models.RoomAvailable
	}
	room.UpdatedAt = m.now()
	m.data.rooms[room.ID] = room
}

// AddService seeds a catalogue service.
func (m *MemStore) AddService(svc models.HotelService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.services[svc.ID] = svc
}

// Queries returns a Queries that reads and writes the committed state
// directly.
func (m *MemStore) Queries() store.Queries {
	return &memQueries{store: m, autocommit: true}
}

// RunInTx runs fn against a private copy of the data and commits it when fn
// returns nil.
func (m *MemStore) RunInTx(ctx context.Context, fn func(q store.Queries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memQueries{store: m, data: m.data.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.data = tx.data
	return nil
}

// AuditEntries returns every committed entry of a trail, oldest first.
func (m *MemStore) AuditEntries(trail models.AuditTrail) []models.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditLogEntry
	for _, e := range m.data.audit {
		if e.Trail == trail {
			out = append(out, e)
		}
	}
	return out
}

type tables struct {
	nextID          int64
	reservations    map[int64]models.Reservation
	rooms           map[int64]models.Room
	services        map[int64]models.HotelService
	serviceRequests map[int64]models.ServiceRequest
	invoices        map[int64]models.Invoice
	items           map[int64]models.InvoiceItem
	payments        map[int64]models.Payment
	audit           []models.AuditLogEntry
}

func newTables() *tables {
	return &tables{
		reservations:    map[int64]models.Reservation{},
		rooms:           map[int64]models.Room{},
		services:        map[int64]models.HotelService{},
		serviceRequests: map[int64]models.ServiceRequest{},
		invoices:        map[int64]models.Invoice{},
		items:           map[int64]models.InvoiceItem{},
		payments:        map[int64]models.Payment{},
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	c.nextID = t.nextID
	for k, v := range t.reservations {
		c.reservations[k] = v
	}
	for k, v := range t.rooms {
		c.rooms[k] = v
	}
	for k, v := range t.services {
		c.services[k] = v
	}
	for k, v := range t.serviceRequests {
		c.serviceRequests[k] = v
	}
	for k, v := range t.invoices {
		c.invoices[k] = v
	}
	for k, v := range t.items {
		c.items[k] = v
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	c.audit = append([]models.AuditLogEntry(nil), t.audit...)
	return c
}

func (t *tables) id() int64 {
	t.nextID++
	return t.nextID
}

// memQueries is either bound to a transaction copy (data set) or, when
// autocommit is set, locks the store and works on the committed state.
type memQueries struct {
	store      *MemStore
	data       *tables
	autocommit bool
}

func (q *memQueries) run(method string, fn func(t *tables) error) error {
	if q.autocommit {
		q.store.mu.Lock()
		defer q.store.mu.Unlock()
		if err := q.store.failures[method]; err != nil {
			return err
		}
		return fn(q.store.data)
	}
	if err := q.store.failures[method]; err != nil {
		return err
	}
	return fn(q.data)
}

func notFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, apperr.ErrNotFound)
}

func copyInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (q *memQueries) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	var out *models.Reservation
	err := q.run("GetReservation", func(t *tables) error {
		r, ok := t.reservations[id]
		if !ok {
			return notFound("reservation", id)
		}
		r.RoomID = copyInt64(r.RoomID)
		out = &r
		return nil
	})
	return out, err
}

func (q *memQueries) GetReservationForUpdate(ctx context.Context, id int64) (*models.Reservation, error) {
	return q.GetReservation(ctx, id)
}

func (q *memQueries) ListReservations(ctx context.Context, f models.ReservationFilters) ([]models.Reservation, int, error) {
	var page []models.Reservation
	var total int
	err := q.run("ListReservations", func(t *tables) error {
		var matched []models.Reservation
		for _, r := range t.reservations {
			if f.Status != nil && r.Status != *f.Status {
				continue
			}
			if f.RoomID != nil && (r.RoomID == nil || *r.RoomID != *f.RoomID) {
				continue
			}
			if f.CustomerID != nil && r.CustomerID != *f.CustomerID {
				continue
			}
			if f.From != nil && !r.CheckOutDate.After(*f.From) {
				continue
			}
			if f.To != nil && !r.CheckInDate.Before(*f.To) {
				continue
			}
			matched = append(matched, r)
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CheckInDate.Equal(matched[j].CheckInDate) {
				return matched[i].CheckInDate.After(matched[j].CheckInDate)
			}
			return matched[i].ID > matched[j].ID
		})

		total = len(matched)
		p, size := f.Page, f.PageSize
		if p <= 0 {
			p = 1
		}
		if size <= 0 || size > 200 {
			size = 50
		}
		start := (p - 1) * size
		page = []models.Reservation{}
		if start < len(matched) {
			end := start + size
			if end > len(matched) {
				end = len(matched)
			}
			page = append(page, matched[start:end]...)
		}
		return nil
	})
	return page, total, err
}

// overlaps mirrors the reservations_no_overlap exclusion constraint.
func overlaps(t *tables, r *models.Reservation) bool {
	if !r.HasRoom() || !r.Status.Active() {
		return false
	}
	for _, other := range t.reservations {
		if other.ID == r.ID || !other.HasRoom() || *other.RoomID != *r.RoomID || !other.Status.Active() {
			continue
		}
		if other.CheckInDate.Before(r.CheckOutDate) && r.CheckInDate.Before(other.CheckOutDate) {
			return true
		}
	}
	return false
}

func (q *memQueries) checkReservationRow(t *tables, r *models.Reservation) error {
	if r.HasRoom() {
		if _, ok := t.rooms[*r.RoomID]; !ok {
			return fmt.Errorf("%w: referenced record does not exist (reservations_room_id_fkey)", apperr.ErrValidation)
		}
	}
	if !r.CheckOutDate.After(r.CheckInDate) {
		return fmt.Errorf("%w: constraint reservations_dates_check violated", apperr.ErrValidation)
	}
	if overlaps(t, r) {
		return fmt.Errorf("%w: room is already booked for an overlapping stay", apperr.ErrRoomUnavailable)
	}
	return nil
}

func (q *memQueries) InsertReservation(ctx context.Context, r *models.Reservation) error {
	return q.run("InsertReservation", func(t *tables) error {
		if err := q.checkReservationRow(t, r); err != nil {
			return err
		}
		r.ID = t.id()
		r.CreatedAt = q.store.now()
		r.UpdatedAt = r.CreatedAt
		row := *r
		row.RoomID = copyInt64(r.RoomID)
		t.reservations[r.ID] = row
		return nil
	})
}

func (q *memQueries) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	return q.run("UpdateReservation", func(t *tables) error {
		existing, ok := t.reservations[r.ID]
		if !ok {
			return notFound("reservation", r.ID)
		}
		if err := q.checkReservationRow(t, r); err != nil {
			return err
		}
		r.UpdatedAt = q.store.now()
		row := *r
		row.RoomID = copyInt64(r.RoomID)
		row.CustomerID = existing.CustomerID
		row.BookingSource = existing.BookingSource
		row.CreatedAt = existing.CreatedAt
		t.reservations[r.ID] = row
		return nil
	})
}

func (q *memQueries) DeleteReservation(ctx context.Context, id int64) error {
	return q.run("DeleteReservation", func(t *tables) error {
		if _, ok := t.reservations[id]; !ok {
			return notFound("reservation", id)
		}
		for _, inv := range t.invoices {
			if inv.ReservationID == id {
				return fmt.Errorf("%w: referenced record does not exist (invoices_reservation_id_fkey)", apperr.ErrValidation)
			}
		}
		for srID, sr := range t.serviceRequests {
			if sr.ReservationID == id {
				delete(t.serviceRequests, srID)
			}
		}
		delete(t.reservations, id)
		return nil
	})
}

func (q *memQueries) HasOverlappingReservation(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error) {
	var found bool
	err := q.run("HasOverlappingReservation", func(t *tables) error {
		probe := models.Reservation{
			ID:           excludeID,
			RoomID:       &roomID,
			CheckInDate:  checkIn,
			CheckOutDate: checkOut,
			Status:       models.ReservationConfirmed,
		}
		found = overlaps(t, &probe)
		return nil
	})
	return found, err
}

func (q *memQueries) GetServicesByIDs(ctx context.Context, ids []int64) ([]models.HotelService, error) {
	out := []models.HotelService{}
	err := q.run("GetServicesByIDs", func(t *tables) error {
		seen := map[int64]bool{}
		for _, id := range ids {
			if svc, ok := t.services[id]; ok && !seen[id] {
				seen[id] = true
				out = append(out, svc)
			}
		}
		return nil
	})
	return out, err
}

func (q *memQueries) InsertServiceRequest(ctx context.Context, sr *models.ServiceRequest) error {
	return q.run("InsertServiceRequest", func(t *tables) error {
		if _, ok := t.reservations[sr.ReservationID]; !ok {
			return fmt.Errorf("%w: referenced record does not exist (service_requests_reservation_id_fkey)", apperr.ErrValidation)
		}
		sr.ID = t.id()
		sr.CreatedAt = q.store.now()
		t.serviceRequests[sr.ID] = *sr
		return nil
	})
}

func (q *memQueries) GetServiceRequests(ctx context.Context, reservationID int64) ([]models.ServiceRequest, error) {
	out := []models.ServiceRequest{}
	err := q.run("GetServiceRequests", func(t *tables) error {
		for _, sr := range t.serviceRequests {
			if sr.ReservationID == reservationID {
				out = append(out, sr)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (q *memQueries) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	var out *models.Room
	err := q.run("GetRoom", func(t *tables) error {
		room, ok := t.rooms[id]
		if !ok {
			return notFound("room", id)
		}
		out = &room
		return nil
	})
	return out, err
}

func (q *memQueries) GetRoomForUpdate(ctx context.Context, id int64) (*models.Room, error) {
	return q.GetRoom(ctx, id)
}

func (q *memQueries) ListRooms(ctx context.Context) ([]models.Room, error) {
	out := []models.Room{}
	err := q.run("ListRooms", func(t *tables) error {
		for _, room := range t.rooms {
			out = append(out, room)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Floor != out[j].Floor {
				return out[i].Floor < out[j].Floor
			}
			return out[i].RoomNumber < out[j].RoomNumber
		})
		return nil
	})
	return out, err
}

func (q *memQueries) UpdateRoomStatus(ctx context.Context, id int64, status models.RoomStatus) error {
	return q.run("UpdateRoomStatus", func(t *tables) error {
		room, ok := t.rooms[id]
		if !ok {
			return notFound("room", id)
		}
		room.Status = status
		room.UpdatedAt = q.store.now()
		t.rooms[id] = room
		return nil
	})
}

func (q *memQueries) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	var out *models.Invoice
	err := q.run("GetInvoice", func(t *tables) error {
		inv, ok := t.invoices[id]
		if !ok {
			return notFound("invoice", id)
		}
		out = &inv
		return nil
	})
	return out, err
}

func (q *memQueries) GetInvoiceForUpdate(ctx context.Context, id int64) (*models.Invoice, error) {
	return q.GetInvoice(ctx, id)
}

func (q *memQueries) GetInvoiceByReservationID(ctx context.Context, reservationID int64) (*models.Invoice, error) {
	var out *models.Invoice
	err := q.run("GetInvoiceByReservationID", func(t *tables) error {
		for _, inv := range t.invoices {
			if inv.ReservationID == reservationID {
				inv := inv
				out = &inv
				return nil
			}
		}
		return fmt.Errorf("invoice for reservation %d: %w", reservationID, apperr.ErrNotFound)
	})
	return out, err
}

func (q *memQueries) MaxInvoiceSequence(ctx context.Context, prefix string) (int, error) {
	var highest int
	err := q.run("MaxInvoiceSequence", func(t *tables) error {
		for _, inv := range t.invoices {
			if !strings.HasPrefix(inv.InvoiceNumber, prefix) {
				continue
			}
			n, err := strconv.Atoi(strings.TrimPrefix(inv.InvoiceNumber, prefix))
			if err == nil && n > highest {
				highest = n
			}
		}
		return nil
	})
	return highest, err
}

func (q *memQueries) InsertInvoice(ctx context.Context, inv *models.Invoice) error {
	return q.run("InsertInvoice", func(t *tables) error {
		if _, ok := t.reservations[inv.ReservationID]; !ok {
			return fmt.Errorf("%w: referenced record does not exist (invoices_reservation_id_fkey)", apperr.ErrValidation)
		}
		for _, existing := range t.invoices {
			if existing.InvoiceNumber == inv.InvoiceNumber {
				return store.ErrDuplicateInvoiceNumber
			}
			if existing.ReservationID == inv.ReservationID {
				return fmt.Errorf("%w: reservation already has an invoice", apperr.ErrConflict)
			}
		}
		inv.ID = t.id()
		inv.CreatedAt = q.store.now()
		inv.UpdatedAt = inv.CreatedAt
		t.invoices[inv.ID] = *inv
		return nil
	})
}

func (q *memQueries) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	return q.run("UpdateInvoice", func(t *tables) error {
		existing, ok := t.invoices[inv.ID]
		if !ok {
			return notFound("invoice", inv.ID)
		}
		if inv.PaidAmount.IsNegative() || inv.PaidAmount.GreaterThan(existing.TotalAmount) {
			return fmt.Errorf("%w: constraint invoices_paid_amount_check violated", apperr.ErrValidation)
		}
		existing.PaidAmount = inv.PaidAmount
		existing.PaymentStatus = inv.PaymentStatus
		existing.DueDate = inv.DueDate
		existing.Notes = inv.Notes
		existing.UpdatedAt = q.store.now()
		inv.UpdatedAt = existing.UpdatedAt
		t.invoices[inv.ID] = existing
		return nil
	})
}

func (q *memQueries) DeleteInvoice(ctx context.Context, id int64) error {
	return q.run("DeleteInvoice", func(t *tables) error {
		if _, ok := t.invoices[id]; !ok {
			return notFound("invoice", id)
		}
		for pid, p := range t.payments {
			if p.InvoiceID == id {
				delete(t.payments, pid)
			}
		}
		for iid, item := range t.items {
			if item.InvoiceID == id {
				delete(t.items, iid)
			}
		}
		delete(t.invoices, id)
		return nil
	})
}

func (q *memQueries) InsertInvoiceItem(ctx context.Context, item *models.InvoiceItem) error {
	return q.run("InsertInvoiceItem", func(t *tables) error {
		if _, ok := t.invoices[item.InvoiceID]; !ok {
			return fmt.Errorf("%w: referenced record does not exist (invoice_items_invoice_id_fkey)", apperr.ErrValidation)
		}
		item.ID = t.id()
		t.items[item.ID] = *item
		return nil
	})
}

func (q *memQueries) GetInvoiceItems(ctx context.Context, invoiceID int64) ([]models.InvoiceItem, error) {
	out := []models.InvoiceItem{}
	err := q.run("GetInvoiceItems", func(t *tables) error {
		for _, item := range t.items {
			if item.InvoiceID == invoiceID {
				out = append(out, item)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (q *memQueries) InsertPayment(ctx context.Context, p *models.Payment) error {
	return q.run("InsertPayment", func(t *tables) error {
		if _, ok := t.invoices[p.InvoiceID]; !ok {
			return fmt.Errorf("%w: referenced record does not exist (payments_invoice_id_fkey)", apperr.ErrValidation)
		}
		if !p.Amount.IsPositive() {
			return fmt.Errorf("%w: constraint payments_amount_check violated", apperr.ErrValidation)
		}
		p.ID = t.id()
		p.CreatedAt = q.store.now()
		t.payments[p.ID] = *p
		return nil
	})
}

func (q *memQueries) GetPaymentsByInvoiceID(ctx context.Context, invoiceID int64) ([]models.Payment, error) {
	out := []models.Payment{}
	err := q.run("GetPaymentsByInvoiceID", func(t *tables) error {
		for _, p := range t.payments {
			if p.InvoiceID == invoiceID {
				out = append(out, p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (q *memQueries) InsertAuditEntry(ctx context.Context, e *models.AuditLogEntry) error {
	return q.run("InsertAuditEntry", func(t *tables) error {
		if e.Trail != models.TrailReservation && e.Trail != models.TrailPayment {
			return fmt.Errorf("unknown audit trail %q", e.Trail)
		}
		e.ID = t.id()
		t.audit = append(t.audit, *e)
		return nil
	})
}

func (q *memQueries) ListAuditEntries(ctx context.Context, trail models.AuditTrail, subjectID int64) ([]models.AuditLogEntry, error) {
	out := []models.AuditLogEntry{}
	err := q.run("ListAuditEntries", func(t *tables) error {
		for _, e := range t.audit {
			if e.Trail == trail && e.SubjectID == subjectID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}
