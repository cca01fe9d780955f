package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"frontdesk-service/internal/apperr"
)

// ReservationStatus is the lifecycle state of a reservation. The numeric
// values are persisted.
type ReservationStatus int

const (
	ReservationPending    ReservationStatus = 1
	ReservationConfirmed  ReservationStatus = 2
	ReservationCheckedIn  ReservationStatus = 3
	ReservationCheckedOut ReservationStatus = 4
	ReservationCancelled  ReservationStatus = 5
)

var reservationStatusNames = map[ReservationStatus]string{
	ReservationPending:    "Pending",
	ReservationConfirmed:  "Confirmed",
	ReservationCheckedIn:  "CheckedIn",
	ReservationCheckedOut: "CheckedOut",
	ReservationCancelled:  "Cancelled",
}

// transitions is the whitelist of reservation status changes. Statuses with
// no entry are terminal.
var transitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:   {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed: {ReservationCheckedIn, ReservationCancelled},
	ReservationCheckedIn: {ReservationCheckedOut},
}

// roomStatusByReservation derives a room's status from the status of the
// reservation occupying it.
var roomStatusByReservation = map[ReservationStatus]RoomStatus{
	ReservationPending:    RoomReserved,
	ReservationConfirmed:  RoomReserved,
	ReservationCheckedIn:  RoomOccupied,
	ReservationCheckedOut: RoomNeedsCleaning,
	ReservationCancelled:  RoomAvailable,
}

func (s ReservationStatus) String() string {
	if name, ok := reservationStatusNames[s]; ok {
		return name
	}
	return "Unknown(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is one of the five known statuses.
func (s ReservationStatus) Valid() bool {
	_, ok := reservationStatusNames[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s ReservationStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Active reports whether s blocks the room for its date range.
func (s ReservationStatus) Active() bool {
	return s == ReservationConfirmed || s == ReservationCheckedIn
}

// AllowedTransitions returns the statuses reachable from s.
func AllowedTransitions(s ReservationStatus) []ReservationStatus {
	out := make([]ReservationStatus, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

// ValidateTransition returns nil when from -> to is whitelisted.
func ValidateTransition(from, to ReservationStatus) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: unknown status %s -> %s", apperr.ErrInvalidTransition, from, to)
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	if from.Terminal() {
		return fmt.Errorf("%w: %s is terminal", apperr.ErrInvalidTransition, from)
	}
	return fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, from, to)
}

// RoomStatusFor returns the room status implied by a reservation status.
func RoomStatusFor(s ReservationStatus) RoomStatus {
	return roomStatusByReservation[s]
}

// ParseReservationStatus accepts either the numeric code or the name
// (case and separator insensitive, e.g. "checked_in").
func ParseReservationStatus(v string) (ReservationStatus, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		s := ReservationStatus(n)
		if !s.Valid() {
			return 0, fmt.Errorf("%w: unknown reservation status %d", apperr.ErrValidation, n)
		}
		return s, nil
	}
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(v))
	for s, name := range reservationStatusNames {
		if strings.ToLower(name) == norm {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown reservation status %q", apperr.ErrValidation, v)
}

func (s ReservationStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ReservationStatus) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var parsed ReservationStatus
	var err error
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return fmt.Errorf("%w: reservation status code must be an integer", apperr.ErrValidation)
		}
		parsed, err = ParseReservationStatus(strconv.Itoa(int(v)))
	case string:
		parsed, err = ParseReservationStatus(v)
	default:
		err = fmt.Errorf("%w: reservation status must be a name or code", apperr.ErrValidation)
	}
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// RoomStatus is the housekeeping state of a room.
type RoomStatus string

const (
	RoomAvailable     RoomStatus = "Available"
	RoomOccupied      RoomStatus = "Occupied"
	RoomReserved      RoomStatus = "Reserved"
	RoomNeedsCleaning RoomStatus = "NeedsCleaning"
)

// PaymentStatus of an invoice, derived from paid vs total.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "Unpaid"
	PaymentPartial PaymentStatus = "Partial"
	PaymentPaid    PaymentStatus = "Paid"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentPartial, PaymentPaid:
		return true
	}
	return false
}
