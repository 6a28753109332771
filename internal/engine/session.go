package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/google/uuid"

	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
	"git.home.luguber.info/inful/javabuild/internal/logfields"
	"git.home.luguber.info/inful/javabuild/internal/metrics"
	"git.home.luguber.info/inful/javabuild/internal/observability"
)

// Execution records one call of Builder.Build that ran to completion.
type Execution struct {
	ID           string
	Builder      string
	Keys         []string
	Descriptions []string
	State        State
	Duration     time.Duration
}

// activeCycle is a merged build in progress.
type activeCycle struct {
	members []Request
}

func (c *activeCycle) initial() string { return c.members[0].Key() }

// Session brings requests up to date. Each request is checked or executed
// at most once per session.
type Session struct {
	e   *Engine
	id  string
	log *slog.Logger

	// pending has an edge from every executing request to each request it
	// is waiting for.
	pending    graph.Graph[string, string]
	inProgress map[string]Request
	memberOf   map[string]*activeCycle

	done       map[string]*Unit
	failed     map[string]error
	executions []Execution
}

func newSession(e *Engine, id string, log *slog.Logger) *Session {
	return &Session{
		e:          e,
		id:         id,
		log:        log,
		pending:    graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
		inProgress: make(map[string]Request),
		memberOf:   make(map[string]*activeCycle),
		done:       make(map[string]*Unit),
		failed:     make(map[string]error),
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Executions returns the builds run so far, in completion order.
func (s *Session) Executions() []Execution {
	return slices.Clone(s.executions)
}

// Build brings req up to date and returns its unit.
func (s *Session) Build(ctx context.Context, req Request) (*Unit, error) {
	u, err := s.require(observability.WithSession(ctx, s.id), req, "")
	var sig *cycleSignal
	if errors.As(err, &sig) {
		return nil, derrors.InternalError("cycle escaped its initial request", sig)
	}
	return u, err
}

func (s *Session) require(ctx context.Context, req Request, parent string) (*Unit, error) {
	req, err := s.e.decode(req)
	if err != nil {
		return nil, err
	}
	key := req.Key()
	if err, ok := s.failed[key]; ok {
		return nil, err
	}
	if u, ok := s.done[key]; ok {
		return u, nil
	}
	if key == parent {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ac, ok := s.memberOf[key]; ok {
		return nil, s.cycleThrough(ac, parent)
	}
	if _, ok := s.inProgress[key]; ok {
		return nil, s.cycle(key, parent)
	}

	if err := s.push(req, parent); err != nil {
		return nil, err
	}
	defer s.pop(key, parent)

	u, err := s.resolve(ctx, req)
	var sig *cycleSignal
	if errors.As(err, &sig) && sig.initial() == key {
		return s.executeCycle(ctx, sig.members)
	}
	return u, err
}

func (s *Session) push(req Request, parent string) error {
	key := req.Key()
	if err := s.pending.AddVertex(key); err != nil {
		return derrors.InternalError("track pending request", err)
	}
	if parent != "" {
		if err := s.pending.AddEdge(parent, key); err != nil {
			_ = s.pending.RemoveVertex(key)
			return derrors.InternalError("track pending request", err)
		}
	}
	s.inProgress[key] = req
	return nil
}

func (s *Session) pop(key, parent string) {
	if parent != "" {
		_ = s.pending.RemoveEdge(parent, key)
	}
	_ = s.pending.RemoveVertex(key)
	delete(s.inProgress, key)
}

// cycle is called when parent requires key while key is still pending.
func (s *Session) cycle(key, parent string) error {
	if parent == "" {
		return derrors.InternalError("request "+key+" required while already pending", nil)
	}
	err := s.pending.AddEdge(parent, key)
	if err == nil {
		_ = s.pending.RemoveEdge(parent, key)
		return derrors.InternalError("request "+key+" is pending outside the current path", nil)
	}
	if !errors.Is(err, graph.ErrEdgeCreatesCycle) {
		return derrors.InternalError("track pending request", err)
	}
	path, err := graph.ShortestPath(s.pending, key, parent)
	if err != nil {
		return derrors.InternalError("trace dependency cycle", err)
	}
	members := make([]Request, len(path))
	for i, k := range path {
		members[i] = s.inProgress[k]
	}
	return &cycleSignal{members: members}
}

// cycleThrough widens an active merged build with the requests between it
// and parent.
func (s *Session) cycleThrough(ac *activeCycle, parent string) error {
	members := slices.Clone(ac.members)
	if parent != "" && parent != ac.initial() {
		path, err := graph.ShortestPath(s.pending, ac.initial(), parent)
		if err != nil {
			return derrors.InternalError("trace dependency cycle", err)
		}
		for _, k := range path[1:] {
			if !slices.ContainsFunc(members, func(r Request) bool { return r.Key() == k }) {
				members = append(members, s.inProgress[k])
			}
		}
	}
	return &cycleSignal{members: members}
}

// resolve returns the stored unit when it is consistent and executes req
// otherwise.
func (s *Session) resolve(ctx context.Context, req Request) (*Unit, error) {
	key := req.Key()
	b, err := s.e.builder(req.BuilderName())
	if err != nil {
		return nil, derrors.InternalError("resolve builder", err)
	}
	input, err := req.Encode()
	if err != nil {
		return nil, derrors.InternalError("encode request", err)
	}

	stored, err := s.e.store.Get(ctx, key)
	switch {
	case err == nil:
		ok, err := s.consistent(ctx, stored, HashInput(input))
		if err != nil {
			return nil, err
		}
		if ok {
			s.done[key] = stored
			s.e.recorder.IncUnitOutcome(metrics.UnitUpToDate)
			s.log.Debug("Unit up to date", logfields.Unit(req.Description()))
			return stored, nil
		}
	case !errors.Is(err, ErrUnitNotFound):
		return nil, derrors.StoreError("get unit", err)
	}

	return s.execute(ctx, b, []Request{req})
}

// consistent reports whether every recorded requirement of u still holds.
// Only cycle signals and cancellation are returned as errors; anything else
// makes the unit stale.
func (s *Session) consistent(ctx context.Context, u *Unit, inputHash string) (bool, error) {
	if !u.Succeeded() || u.InputHash != inputHash {
		return false, nil
	}
	for _, r := range u.Requirements {
		switch r.Kind {
		case RequireFile:
			cur, err := s.e.stamper.Stamp(r.Path, r.Stamp.Kind)
			if err != nil || !cur.Equal(r.Stamp) {
				s.log.Debug("Requirement changed",
					logfields.Unit(u.Description), logfields.Path(r.Path), logfields.Stamp(string(r.Stamp.Kind)))
				return false, nil
			}
		case RequireBuild:
			b, err := s.e.builder(r.Builder)
			if err != nil {
				return false, nil
			}
			dep, err := b.Decode(r.Input)
			if err != nil {
				return false, nil
			}
			if _, err := s.require(ctx, dep, u.Key); err != nil {
				var sig *cycleSignal
				if errors.As(err, &sig) || ctx.Err() != nil {
					return false, err
				}
				return false, nil
			}
		default:
			return false, nil
		}
	}
	for _, p := range u.Provides {
		cur, err := s.e.stamper.Stamp(p.Path, p.Stamp.Kind)
		if err != nil || !cur.Equal(p.Stamp) {
			s.log.Debug("Output changed", logfields.Unit(u.Description), logfields.Path(p.Path))
			return false, nil
		}
	}
	return true, nil
}

// executeCycle builds the members of a cycle together. Members discovered
// while the merged build runs widen the cycle and restart it.
func (s *Session) executeCycle(ctx context.Context, members []Request) (*Unit, error) {
	for {
		u, err := s.buildCycle(ctx, members)
		var sig *cycleSignal
		if errors.As(err, &sig) && sig.initial() == members[0].Key() && len(sig.members) > len(members) {
			members = sig.members
			continue
		}
		return u, err
	}
}

func (s *Session) buildCycle(ctx context.Context, members []Request) (*Unit, error) {
	keys, descs := describe(members)
	s.log.Info("Dependency cycle detected", logfields.Cycle(descs))

	reject := func(cause error) (*Unit, error) {
		cerr := &CycleError{Keys: keys, Descriptions: descs, Cause: cause}
		s.e.recorder.IncCycleResolution(metrics.ResultFailure, len(members))
		s.log.Warn("Cycle rejected", logfields.Cycle(descs), logfields.Error(cause))
		s.persistFailure(ctx, members, uuid.NewString(), time.Now(), cerr)
		return nil, cerr
	}

	name := members[0].BuilderName()
	for _, m := range members[1:] {
		if m.BuilderName() != name {
			return reject(fmt.Errorf("members use different builders %q and %q", name, m.BuilderName()))
		}
	}
	b, err := s.e.builder(name)
	if err != nil {
		return reject(err)
	}
	cb, ok := b.(CycleBuilder)
	if !ok {
		return reject(fmt.Errorf("builder %q cannot build cycles", name))
	}
	if err := cb.CanBuildCycle(members); err != nil {
		return reject(err)
	}

	ac := &activeCycle{members: members}
	for _, k := range keys {
		s.memberOf[k] = ac
	}
	defer func() {
		for _, k := range keys {
			delete(s.memberOf, k)
		}
	}()

	u, err := s.execute(ctx, b, members)
	if err == nil {
		s.e.recorder.IncCycleResolution(metrics.ResultSuccess, len(members))
	} else if !errors.As(err, new(*cycleSignal)) {
		s.e.recorder.IncCycleResolution(metrics.ResultFailure, len(members))
	}
	return u, err
}

// execute runs b over reqs and persists the outcome for every request.
func (s *Session) execute(ctx context.Context, b Builder, reqs []Request) (*Unit, error) {
	id := uuid.NewString()
	keys, descs := describe(reqs)
	log := s.log.With(logfields.ExecutionID(id), logfields.Builder(b.Name()))
	log.Info("Building", logfields.Unit(descs[0]), logfields.Count(len(reqs)))

	start := time.Now()
	bc := newBuildContext(s, reqs)
	err := b.Build(observability.WithExecution(ctx, id, descs[0]), bc, reqs)

	var sig *cycleSignal
	if errors.As(err, &sig) {
		log.Debug("Build interrupted by cycle", logfields.Cycle(keys))
		return nil, sig
	}

	run := Execution{ID: id, Builder: b.Name(), Keys: keys, Descriptions: descs, Duration: time.Since(start)}
	if err != nil {
		run.State = StateFailure
		s.executions = append(s.executions, run)
		log.Warn("Build failed", logfields.Unit(descs[0]), logfields.Error(err))
		return nil, s.persistFailure(ctx, reqs, id, start, err)
	}

	units, err := bc.commit(id, start, time.Now())
	if err != nil {
		return nil, s.persistFailure(ctx, reqs, id, start, err)
	}
	for _, u := range units {
		if err := s.e.store.Put(ctx, u); err != nil {
			return nil, derrors.StoreError("put unit", err)
		}
		s.done[u.Key] = u
		s.e.recorder.IncUnitOutcome(metrics.UnitExecuted)
	}
	run.State = StateSuccess
	s.executions = append(s.executions, run)
	log.Info("Build succeeded",
		logfields.Unit(descs[0]),
		logfields.DurationMS(float64(run.Duration.Microseconds())/1000))
	return units[0], nil
}

// persistFailure stores failure units without requirements so that the
// next session executes them again, and returns the error for reqs[0].
func (s *Session) persistFailure(ctx context.Context, reqs []Request, id string, start time.Time, cause error) error {
	var first error
	for i, r := range reqs {
		input, _ := r.Encode()
		u := &Unit{
			Key:         r.Key(),
			Builder:     r.BuilderName(),
			Description: r.Description(),
			Input:       input,
			InputHash:   HashInput(input),
			State:       StateFailure,
			Error:       cause.Error(),
			ExecutionID: id,
			StartedAt:   start,
			FinishedAt:  time.Now(),
		}
		if len(reqs) > 1 {
			u.Cycle, _ = describe(reqs)
		}
		if err := s.e.store.Put(ctx, u); err != nil {
			s.log.Error("Failed to persist failure", logfields.Unit(u.Description), logfields.Error(err))
		}
		s.e.recorder.IncUnitOutcome(metrics.UnitFailed)

		ferr := cause
		var cerr *CycleError
		if !errors.As(cause, &cerr) {
			ferr = &FailedError{Key: r.Key(), Description: r.Description(), Cause: cause}
		}
		s.failed[r.Key()] = ferr
		if i == 0 {
			first = ferr
		}
	}
	return first
}

func describe(reqs []Request) (keys, descs []string) {
	keys = make([]string, len(reqs))
	descs = make([]string, len(reqs))
	for i, r := range reqs {
		keys[i] = r.Key()
		descs[i] = r.Description()
	}
	return keys, descs
}
