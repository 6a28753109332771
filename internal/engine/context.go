package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
	"git.home.luguber.info/inful/javabuild/internal/stamp"
	"git.home.luguber.info/inful/javabuild/internal/util/sets"
)

// buildContext collects the declarations of one execution. Requirements are
// shared by every executing request; provisions belong to their owner.
type buildContext struct {
	s            *Session
	reqs         []Request
	members      sets.Set[string]
	requirements []Requirement
	seen         sets.Set[string]
	provides     map[string][]string
	outputs      map[string][]byte
}

func newBuildContext(s *Session, reqs []Request) *buildContext {
	members := sets.New[string]()
	for _, r := range reqs {
		members.Add(r.Key())
	}
	return &buildContext{
		s:        s,
		reqs:     reqs,
		members:  members,
		seen:     sets.New[string](),
		provides: make(map[string][]string),
		outputs:  make(map[string][]byte),
	}
}

func (bc *buildContext) Require(path string, kind stamp.Kind) error {
	if !kind.Valid() {
		return derrors.InternalError(fmt.Sprintf("invalid stamp kind %q", kind), nil)
	}
	id := "file:" + string(kind) + ":" + path
	if bc.seen.Has(id) {
		return nil
	}
	st, err := bc.s.e.stamper.Stamp(path, kind)
	if err != nil {
		return derrors.FileSystemError("stamp", path, err)
	}
	bc.seen.Add(id)
	bc.requirements = append(bc.requirements, Requirement{Kind: RequireFile, Path: path, Stamp: st})
	return nil
}

func (bc *buildContext) RequireBuild(ctx context.Context, req Request) error {
	key := req.Key()
	if bc.members.Has(key) {
		return nil
	}
	if _, err := bc.s.require(ctx, req, bc.reqs[0].Key()); err != nil {
		return err
	}
	id := "build:" + key
	if bc.seen.Has(id) {
		return nil
	}
	input, err := req.Encode()
	if err != nil {
		return derrors.InternalError("encode request", err)
	}
	bc.seen.Add(id)
	bc.requirements = append(bc.requirements, Requirement{
		Kind:    RequireBuild,
		Key:     key,
		Builder: req.BuilderName(),
		Input:   input,
	})
	return nil
}

func (bc *buildContext) Provide(owner Request, path string) {
	key := bc.ownerKey(owner)
	if !slices.Contains(bc.provides[key], path) {
		bc.provides[key] = append(bc.provides[key], path)
	}
}

func (bc *buildContext) SetOutput(owner Request, data []byte) {
	bc.outputs[bc.ownerKey(owner)] = slices.Clone(data)
}

// ownerKey attributes a declaration to owner, or to the first executing
// request when owner is not one of them.
func (bc *buildContext) ownerKey(owner Request) string {
	if owner != nil && bc.members.Has(owner.Key()) {
		return owner.Key()
	}
	return bc.reqs[0].Key()
}

// commit turns the declarations into one unit per executing request.
func (bc *buildContext) commit(id string, start, finish time.Time) ([]*Unit, error) {
	var cycle []string
	if len(bc.reqs) > 1 {
		cycle, _ = describe(bc.reqs)
	}
	units := make([]*Unit, 0, len(bc.reqs))
	for _, r := range bc.reqs {
		input, err := r.Encode()
		if err != nil {
			return nil, derrors.InternalError("encode request", err)
		}
		u := &Unit{
			Key:          r.Key(),
			Builder:      r.BuilderName(),
			Description:  r.Description(),
			Input:        input,
			InputHash:    HashInput(input),
			State:        StateSuccess,
			Requirements: slices.Clone(bc.requirements),
			Output:       bc.outputs[r.Key()],
			Cycle:        cycle,
			ExecutionID:  id,
			StartedAt:    start,
			FinishedAt:   finish,
		}
		for _, p := range bc.provides[r.Key()] {
			st, err := bc.s.e.stamper.Stamp(p, stamp.Modified)
			if err != nil {
				return nil, derrors.FileSystemError("stamp output", p, err)
			}
			u.Provides = append(u.Provides, Provision{Path: p, Stamp: st})
		}
		units = append(units, u)
	}
	return units, nil
}
