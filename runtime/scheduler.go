package runtime

import (
	"fmt"
	"sort"
	"time"

	"github.com/warriorguo/taskpipe/types"
)

/**
 * scheduler is the mutable run-time state of one execution. Every step of
 * the graph is in exactly one of waiting, ready, running, success, failed,
 * blocked, cancelled or skipped, and a step never re-enters a previous
 * state. The executor's controller goroutine is the only mutator, so no
 * locking happens here.
 *
 * Transition preconditions are programming errors, not recoverable
 * conditions: violating one panics.
 */
type scheduler struct {
	// exclusively owned deep copies, edges are severed as steps finish
	dependencies map[string]map[string]struct{}
	dependents   map[string]map[string]struct{}
	weights      map[string]weight

	stopped bool

	waiting   map[string]struct{}
	ready     []string
	running   map[string]time.Time
	success   map[string]struct{}
	failed    map[string]struct{}
	blocked   map[string]struct{}
	cancelled map[string]struct{}
	skipped   map[string]struct{}

	results map[string]types.StepResult
}

func newScheduler(
	dependencies map[string]map[string]struct{},
	dependents map[string]map[string]struct{},
	weights map[string]weight,
) *scheduler {
	s := &scheduler{
		dependencies: dependencies,
		dependents:   dependents,
		weights:      weights,

		waiting:   make(map[string]struct{}),
		running:   make(map[string]time.Time),
		success:   make(map[string]struct{}),
		failed:    make(map[string]struct{}),
		blocked:   make(map[string]struct{}),
		cancelled: make(map[string]struct{}),
		skipped:   make(map[string]struct{}),

		results: make(map[string]types.StepResult),
	}

	for step, requirements := range dependencies {
		if len(requirements) == 0 {
			s.insertReady(step)
		} else {
			s.waiting[step] = struct{}{}
		}
	}

	return s
}

// hasWork is the executor's loop-termination test.
func (s *scheduler) hasWork() bool {
	return len(s.ready) > 0 || len(s.running) > 0
}

/**
 * insertReady keeps the ready queue sorted by weight, heaviest first.
 * Since the weight tuple ends with the step name the order is total, and
 * dispatch order is therefore reproducible run-to-run for a fixed graph.
 */
func (s *scheduler) insertReady(step string) {
	w := s.weights[step]
	at := sort.Search(len(s.ready), func(i int) bool {
		return w.heavier(s.weights[s.ready[i]])
	})
	s.ready = append(s.ready, "")
	copy(s.ready[at+1:], s.ready[at:])
	s.ready[at] = step
}

func (s *scheduler) markStarted(step string) {
	if s.stopped {
		panic(fmt.Sprintf("step %s started after scheduler stop", step))
	}

	at := -1
	for i, name := range s.ready {
		if name == step {
			at = i
			break
		}
	}
	if at < 0 {
		panic(fmt.Sprintf("step %s started while not ready", step))
	}
	s.ready = append(s.ready[:at], s.ready[at+1:]...)
	s.running[step] = time.Now()
}

func (s *scheduler) markSuccess(step string) {
	startedAt, exists := s.running[step]
	if !exists {
		panic(fmt.Sprintf("step %s finished while not running", step))
	}
	delete(s.running, step)

	s.success[step] = struct{}{}
	s.results[step] = types.StepResult{
		Outcome:  types.ResultSuccess,
		Duration: time.Since(startedAt),
	}
	s.markDependentsReady(step)
}

/**
 * markSkipped is a non-fatal terminal state: the step did not do its work,
 * but its dependents are unblocked exactly as on success.
 */
func (s *scheduler) markSkipped(step string, err error) {
	startedAt, exists := s.running[step]
	if !exists {
		panic(fmt.Sprintf("step %s skipped while not running", step))
	}
	delete(s.running, step)

	s.skipped[step] = struct{}{}
	s.results[step] = types.StepResult{
		Outcome:  types.ResultSkipped,
		Duration: time.Since(startedAt),
		Err:      err,
	}
	s.markDependentsReady(step)
}

func (s *scheduler) markFailed(step string, err error) {
	startedAt, exists := s.running[step]
	if !exists {
		panic(fmt.Sprintf("step %s failed while not running", step))
	}
	delete(s.running, step)

	s.failed[step] = struct{}{}
	s.results[step] = types.StepResult{
		Outcome:  types.ResultFailed,
		Duration: time.Since(startedAt),
		Err:      err,
	}
	s.markDependentsBlocked(step)
}

func (s *scheduler) markDependentsReady(step string) {
	for dependent := range s.dependents[step] {
		requirements := s.dependencies[dependent]
		delete(requirements, step)

		if len(requirements) > 0 {
			continue
		}
		if _, isWaiting := s.waiting[dependent]; isWaiting {
			delete(s.waiting, dependent)
			s.insertReady(dependent)
			continue
		}
		// then the run was stopped while this dependent still waited
		if _, isCancelled := s.cancelled[dependent]; !isCancelled {
			panic(fmt.Sprintf("step %s became ready from an unexpected state", dependent))
		}
	}
}

/**
 * markDependentsBlocked cascades a failure through every transitive
 * dependent with an explicit worklist. Each dependent is blocked at most
 * once: its remaining dependency edges are severed when it is first
 * reached, so a later failing ancestor no longer points at it. Dependents
 * that were already cancelled by a stop stay cancelled.
 */
func (s *scheduler) markDependentsBlocked(step string) {
	queue := []string{step}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for dependent := range s.dependents[current] {
			if _, isCancelled := s.cancelled[dependent]; isCancelled {
				continue
			}
			delete(s.waiting, dependent)

			s.blocked[dependent] = struct{}{}
			s.results[dependent] = types.StepResult{Outcome: types.ResultBlocked}

			// Sever the remaining edges, this step can never start anyways
			requirements := s.dependencies[dependent]
			delete(requirements, current)
			for requirement := range requirements {
				delete(s.dependents[requirement], dependent)
			}

			queue = append(queue, dependent)
		}
	}
}

/**
 * stop drains ready and waiting into cancelled. Running steps are left
 * alone, their eventual markSuccess/markFailed is still accepted and
 * produces a normal result.
 */
func (s *scheduler) stop() {
	s.stopped = true

	for _, step := range s.ready {
		s.cancelled[step] = struct{}{}
		s.results[step] = types.StepResult{Outcome: types.ResultCancelled}
	}
	s.ready = nil

	for step := range s.waiting {
		s.cancelled[step] = struct{}{}
		s.results[step] = types.StepResult{Outcome: types.ResultCancelled}
	}
	s.waiting = make(map[string]struct{})
}
