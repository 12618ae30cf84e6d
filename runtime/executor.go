package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	goruntime "runtime"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/taskpipe/types"
)

const (
	runsPrefix = "/runs/"
)

/**
 * jobOutcome is what a worker reports back to the controller. Workers
 * never touch the scheduler themselves; the controller is its only
 * mutator, which keeps every transition single-threaded.
 */
type jobOutcome struct {
	name string
	err  error
	buf  *bytes.Buffer
}

func (p *pipeline) Execute(ctx context.Context, steps, exceptSteps []string) error {
	start := time.Now()

	graph, err := p.buildGraph(steps, exceptSteps, p.opts.OnlySelected)
	if err != nil {
		return errors.Trace(err)
	}

	res, err := newResolver(graph)
	if err != nil {
		return errors.Trace(err)
	}
	sched := res.scheduler()
	order := res.order()

	if p.opts.Clean {
		log.Debug("cleaning up workspace")
		for _, name := range order {
			h, exists := p.resolvedHandler(name)
			if !exists {
				continue
			}
			// best effort, clean failures never abort the run
			if err := h.clean(ctx); err != nil {
				log.Errorf("failed to clean step %s: %v", name, err)
			}
		}
	}

	log.Infof("running steps: %s", strings.Join(order, ", "))

	var shouldStop atomic.Bool

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sigDone := make(chan struct{})
	go func() {
		interrupted := false
		for {
			select {
			case <-sigCh:
				if !interrupted {
					interrupted = true
					shouldStop.Store(true)
					log.Warn("stopping requested, this will finish current jobs; interrupt again to abort")
				} else {
					log.Error("aborting")
					p.procs.killAll()
				}
			case <-sigDone:
				return
			}
		}
	}()
	defer func() {
		signal.Stop(sigCh)
		close(sigDone)
	}()

	runID := fmt.Sprintf("%s-%d", start.UTC().Format("20060102T150405"), os.Getpid())

	p.runLoop(ctx, sched, shouldStop.Load)

	return errors.Trace(p.logSummary(ctx, runID, sched, order, graph, start))
}

/**
 * runLoop is the single-threaded controller: it dispatches ready steps to
 * the worker pool while fewer than the job budget are in flight, then
 * blocks for the next completion and folds it back into the scheduler.
 * Completion order is whatever the workers produce; only dispatch order
 * is deterministic.
 */
func (p *pipeline) runLoop(ctx context.Context, sched *scheduler, shouldStop func() bool) {
	jobs := p.opts.Jobs
	if jobs <= 0 {
		jobs = goruntime.NumCPU()
	}

	wp := workerpool.New(jobs)
	defer wp.StopWait()

	outcomeCh := make(chan jobOutcome)
	inflight := 0

	for sched.hasWork() {
		if shouldStop() && !sched.stopped {
			sched.stop()
		}

		for inflight < jobs && len(sched.ready) > 0 {
			name := sched.ready[0]
			sched.markStarted(name)

			handler, exists := p.resolvedHandler(name)
			if !exists {
				// cannot happen, the graph was built from the registry
				sched.markFailed(name, errors.NotFoundf("step %s", name))
				continue
			}

			/**
			 * With one job output can stream straight through. With more,
			 * each job writes into its own buffer which is flushed as one
			 * contiguous block on completion, so parallel steps never
			 * interleave their output.
			 */
			var buf *bytes.Buffer
			var out io.Writer
			if jobs != 1 {
				buf = &bytes.Buffer{}
				out = buf
			}

			rc := newRunContext(ctx, p, handler, out)
			wp.Submit(func() {
				outcomeCh <- jobOutcome{name: name, err: handler.execute(rc), buf: buf}
			})
			inflight++
		}

		if inflight == 0 {
			continue
		}

		outcome := <-outcomeCh
		inflight--

		if outcome.buf != nil && outcome.buf.Len() > 0 {
			_, _ = os.Stdout.Write(outcome.buf.Bytes())
		}

		p.handleOutcome(sched, outcome)
	}
}

func (p *pipeline) handleOutcome(sched *scheduler, outcome jobOutcome) {
	switch {
	case outcome.err == nil:
		sched.markSuccess(outcome.name)
		log.Infof("step %s finished successfully", outcome.name)

	case types.IsUnavailableInterpreter(outcome.err) && p.opts.SkipMissingInterpreters:
		sched.markSkipped(outcome.name, outcome.err)
		log.Warnf("step %s skipped: %v", outcome.name, outcome.err)

	default:
		sched.markFailed(outcome.name, outcome.err)
		log.Errorf("step %s failed: %v", outcome.name, outcome.err)

		if p.opts.FailFast && !sched.stopped {
			sched.stop()
		}
	}
}
