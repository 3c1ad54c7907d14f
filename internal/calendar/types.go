package calendar

import (
	"fmt"

	"github.com/alaga-care/care-service/internal/medication"
)

// EventType says what an event is about.
type EventType int

const (
	TypeMedication EventType = iota
	TypeAppointment
	TypeTask
	TypeHealthCheck
	TypeOther

	typeCount
)

var typeTokens = [...]string{
	TypeMedication:  "medication",
	TypeAppointment: "appointment",
	TypeTask:        "task",
	TypeHealthCheck: "health_check",
	TypeOther:       "other",
}

var typeColors = [...]string{
	TypeMedication:  "#00A3B4",
	TypeAppointment: "#8A7FE0",
	TypeTask:        "#FF6B6B",
	TypeHealthCheck: "#4CAF50",
	TypeOther:       DefaultColor,
}

// DefaultColor is used for types without a colour of their own.
const DefaultColor = "#8A7FE0"

var (
	_ [int(typeCount)]struct{} = [len(typeTokens)]struct{}{}
	_ [int(typeCount)]struct{} = [len(typeColors)]struct{}{}
)

func (t EventType) String() string {
	if t < 0 || t >= typeCount {
		return typeTokens[TypeOther]
	}
	return typeTokens[t]
}

// Color is the display colour of the type.
func (t EventType) Color() string {
	if t < 0 || t >= typeCount {
		return DefaultColor
	}
	return typeColors[t]
}

func ParseEventType(token string) (EventType, error) {
	for i, tok := range typeTokens {
		if tok == token {
			return EventType(i), nil
		}
	}
	return TypeOther, fmt.Errorf("%w: %q", ErrInvalidType, token)
}

func typeFromToken(token string) EventType {
	t, err := ParseEventType(token)
	if err != nil {
		return TypeOther
	}
	return t
}

func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *EventType) UnmarshalText(text []byte) error {
	parsed, err := ParseEventType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// EventStatus is the outcome of an event.
type EventStatus int

const (
	StatusPending EventStatus = iota
	StatusCompleted
	StatusMissed
	StatusSkipped
	StatusTaken

	statusCount
)

var statusTokens = [...]string{
	StatusPending:   "pending",
	StatusCompleted: "completed",
	StatusMissed:    "missed",
	StatusSkipped:   "skipped",
	StatusTaken:     "taken",
}

// medicationStatuses is the status a linked medication takes when its event
// is marked.
var medicationStatuses = [...]medication.Status{
	StatusPending:   medication.StatusPending,
	StatusCompleted: medication.StatusTaken,
	StatusMissed:    medication.StatusMissed,
	StatusSkipped:   medication.StatusSkipped,
	StatusTaken:     medication.StatusTaken,
}

var (
	_ [int(statusCount)]struct{} = [len(statusTokens)]struct{}{}
	_ [int(statusCount)]struct{} = [len(medicationStatuses)]struct{}{}
)

func (s EventStatus) String() string {
	if s < 0 || s >= statusCount {
		return statusTokens[StatusPending]
	}
	return statusTokens[s]
}

// MedicationStatus maps the event status onto a medication status.
func (s EventStatus) MedicationStatus() medication.Status {
	if s < 0 || s >= statusCount {
		return medication.StatusPending
	}
	return medicationStatuses[s]
}

func ParseEventStatus(token string) (EventStatus, error) {
	for i, tok := range statusTokens {
		if tok == token {
			return EventStatus(i), nil
		}
	}
	return StatusPending, fmt.Errorf("%w: %q", ErrInvalidStatus, token)
}

func statusFromToken(token string) EventStatus {
	s, err := ParseEventStatus(token)
	if err != nil {
		return StatusPending
	}
	return s
}

func (s EventStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *EventStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseEventStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
