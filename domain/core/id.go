package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// v7 keeps run listings sortable by creation time
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
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
	RunID       ID
	CandidateID ID
)

func (id RunID) String() string       { return ID(id).String() }
func (id CandidateID) String() string { return ID(id).String() }

// NewRunID creates a new mitigation run identifier
func NewRunID() RunID { return RunID(NewID()) }

// NewCandidateID creates a new candidate identifier
func NewCandidateID() CandidateID { return CandidateID(NewID()) }

// BaselineCandidateID marks the no-op selection in an iteration
const BaselineCandidateID CandidateID = "baseline"

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("run ID %q is not a valid UUID: %w", s, err)
	}
	return RunID(s), nil
}
