package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"git.home.luguber.info/inful/javabuild/internal/stamp"
)

// State is the outcome of a unit's last execution.
type State string

const (
	StateSuccess State = "success"
	StateFailure State = "failure"
)

// RequirementKind distinguishes file and build requirements.
type RequirementKind string

const (
	RequireFile  RequirementKind = "file"
	RequireBuild RequirementKind = "build"
)

// Requirement is one recorded dependency. File requirements carry Path and
// Stamp; build requirements carry the required request's Key, Builder and
// encoded Input.
type Requirement struct {
	Kind    RequirementKind `json:"kind"`
	Path    string          `json:"path,omitempty"`
	Stamp   stamp.Stamp     `json:"stamp,omitzero"`
	Key     string          `json:"key,omitempty"`
	Builder string          `json:"builder,omitempty"`
	Input   []byte          `json:"input,omitempty"`
}

// Provision is an output file and its stamp at the end of the execution.
type Provision struct {
	Path  string      `json:"path"`
	Stamp stamp.Stamp `json:"stamp"`
}

// Unit is the persisted record of a request's last execution. Requirements
// keep declaration order; consistency checks stop at the first that fails.
type Unit struct {
	Key          string        `json:"key"`
	Builder      string        `json:"builder"`
	Description  string        `json:"description"`
	Input        []byte        `json:"input"`
	InputHash    string        `json:"input_hash"`
	State        State         `json:"state"`
	Error        string        `json:"error,omitempty"`
	Requirements []Requirement `json:"requirements,omitempty"`
	Provides     []Provision   `json:"provides,omitempty"`
	// Output is the builder's persisted result, if it has one.
	Output []byte `json:"output,omitempty"`
	// Cycle lists the keys built in the same execution when the unit was
	// part of a merged cycle.
	Cycle       []string  `json:"cycle,omitempty"`
	ExecutionID string    `json:"execution_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Succeeded reports whether the last execution succeeded.
func (u *Unit) Succeeded() bool { return u != nil && u.State == StateSuccess }

// HashInput returns the fingerprint stored as Unit.InputHash.
func HashInput(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}
