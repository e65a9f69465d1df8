package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// eventNamespace scopes deterministic event identifiers.
var eventNamespace = uuid.MustParse("6f1d3c2e-9a41-4c1b-8d55-3e0f7a2b9c10")

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// NewStableID derives a name-based identifier; the same parts always yield the same ID.
func NewStableID(parts ...string) ID {
	return ID(uuid.NewSHA1(eventNamespace, []byte(strings.Join(parts, "\x1f"))).String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	ReportID   ID
	ProtocolID ID
	EventID    ID
)

// String conversions for domain IDs
func (id ReportID) String() string   { return ID(id).String() }
func (id ProtocolID) String() string { return ID(id).String() }
func (id EventID) String() string    { return ID(id).String() }

// IsEmpty reports whether the protocol reference is unset.
func (id ProtocolID) IsEmpty() bool { return ID(id).IsEmpty() }

// NewEventID returns the identifier of the protocol change between two reports.
func NewEventID(before, after ReportID) EventID {
	return EventID(NewStableID("event", before.String(), after.String()))
}

// ParseReportID parses a string into ReportID
func ParseReportID(s string) (ReportID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("report ID cannot be empty")
	}
	return ReportID(strings.TrimSpace(s)), nil
}

// ParseProtocolID parses a string into ProtocolID. Empty input is a valid "no reference".
func ParseProtocolID(s string) ProtocolID {
	return ProtocolID(strings.TrimSpace(s))
}
