package engine

import (
	"context"

	"git.home.luguber.info/inful/javabuild/internal/stamp"
)

// Request identifies one unit of work. Requests with equal keys are the same
// unit; Encode must be deterministic so that unchanged requests hash equal.
type Request interface {
	Key() string
	BuilderName() string
	Encode() ([]byte, error)
	Description() string
}

// Builder executes requests of one kind.
type Builder interface {
	Name() string
	Decode(data []byte) (Request, error)
	// Build executes reqs. It is called with a single request, or with every
	// member of an accepted cycle.
	Build(ctx context.Context, bc BuildContext, reqs []Request) error
}

// CycleBuilder is implemented by builders able to build a cycle of their
// own requests in one execution. A non-nil error rejects the cycle.
type CycleBuilder interface {
	Builder
	CanBuildCycle(reqs []Request) error
}

// BuildContext records the dependencies of an executing build.
type BuildContext interface {
	// Require stamps path now; the unit is stale once the stamp changes.
	Require(path string, kind stamp.Kind) error
	// RequireBuild brings req up to date, executing it if needed, and
	// records the dependency.
	RequireBuild(ctx context.Context, req Request) error
	// Provide declares path as an output of owner. An owner outside the
	// executing requests attributes the file to the first of them.
	Provide(owner Request, path string)
	// SetOutput stores data as the persisted result of owner, replayed
	// while the unit stays consistent.
	SetOutput(owner Request, data []byte)
}
