package scheduler

import (
	"context"
	"fmt"

	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/store"
)

// eligible implements the §4.3 step 2 rule: a step with one or more
// `blocks` dependency rows is eligible iff every such predecessor is
// completed; absent any blocks row, a legacy `parent_step_id` gates
// eligibility on that parent's completion; absent both, the step is
// eligible unconditionally.
func eligible(ctx context.Context, s store.Store, step domain.Step) (bool, error) {
	deps, err := s.ListStepDependencies(ctx, step.ID)
	if err != nil {
		return false, fmt.Errorf("scheduler: list dependencies for %s: %w", step.ID, err)
	}

	hasBlocking := false
	for _, d := range deps {
		if d.Type == domain.DependencyBlocks {
			hasBlocking = true
			break
		}
	}
	if hasBlocking {
		unsatisfied, err := s.UnsatisfiedBlockingDeps(ctx, step.ID)
		if err != nil {
			return false, fmt.Errorf("scheduler: check blocking deps for %s: %w", step.ID, err)
		}
		return !unsatisfied, nil
	}

	if step.ParentStepID != "" {
		parent, err := s.GetStep(ctx, step.ParentStepID)
		if err != nil {
			return false, fmt.Errorf("scheduler: get parent step %s: %w", step.ParentStepID, err)
		}
		return parent.Status == domain.StepCompleted, nil
	}

	return true, nil
}
