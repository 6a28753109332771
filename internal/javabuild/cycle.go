package javabuild

import (
	"fmt"
	"slices"

	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
)

// CycleUnresolvableError reports cycle members that cannot share one
// compiler invocation.
type CycleUnresolvableError struct {
	Setting string
	First   string
	Other   string
}

func (e *CycleUnresolvableError) Error() string {
	return fmt.Sprintf("cannot merge cyclic compilations: %s differs (%s vs %s)", e.Setting, e.First, e.Other)
}

func (e *CycleUnresolvableError) ErrorCategory() derrors.ErrorCategory { return derrors.CategoryCycle }

// CanMerge reports whether inputs can be compiled together: they must agree
// on target directory, extra arguments, releases and compiler.
func CanMerge(inputs []*Input) error {
	if len(inputs) < 2 {
		return nil
	}
	first := inputs[0]
	for _, in := range inputs[1:] {
		switch {
		case in.TargetDir != first.TargetDir:
			return &CycleUnresolvableError{Setting: "target directory", First: first.TargetDir, Other: in.TargetDir}
		case !slices.Equal(in.ExtraArgs, first.ExtraArgs):
			return &CycleUnresolvableError{Setting: "extra arguments", First: fmt.Sprint(first.ExtraArgs), Other: fmt.Sprint(in.ExtraArgs)}
		case in.SourceRelease != first.SourceRelease:
			return &CycleUnresolvableError{Setting: "source release", First: first.SourceRelease, Other: in.SourceRelease}
		case in.TargetRelease != first.TargetRelease:
			return &CycleUnresolvableError{Setting: "target release", First: first.TargetRelease, Other: in.TargetRelease}
		case in.Compiler != first.Compiler:
			return &CycleUnresolvableError{Setting: "compiler", First: first.Compiler, Other: in.Compiler}
		}
	}
	return nil
}
