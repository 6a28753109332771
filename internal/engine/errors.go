package engine

import (
	"fmt"
	"strings"

	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
)

// CycleError reports a cycle of requests that no builder accepted.
type CycleError struct {
	// Keys are the members in dependency order, starting with the request
	// that began the cycle.
	Keys         []string
	Descriptions []string
	Cause        error
}

func (e *CycleError) Error() string {
	msg := "unresolvable dependency cycle: " + strings.Join(e.Descriptions, " -> ")
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *CycleError) Unwrap() error { return e.Cause }

func (e *CycleError) ErrorCategory() derrors.ErrorCategory { return derrors.CategoryCycle }

// FailedError reports that a request's build failed, either in this session
// or in an earlier call within it.
type FailedError struct {
	Key         string
	Description string
	Cause       error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("build %s failed: %v", e.Description, e.Cause)
}

func (e *FailedError) Unwrap() error { return e.Cause }

// cycleSignal unwinds the pending stack up to the request that began the
// cycle. It is never returned from Session methods.
type cycleSignal struct {
	members []Request
}

func (c *cycleSignal) initial() string { return c.members[0].Key() }

func (c *cycleSignal) Error() string {
	names := make([]string, len(c.members))
	for i, m := range c.members {
		names[i] = m.Description()
	}
	return "dependency cycle: " + strings.Join(names, " -> ")
}
