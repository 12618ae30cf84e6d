package runtime

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/taskpipe/types"
)

var (
	_ types.StepContext = &runContext{}
)

func newRunContext(ctx context.Context, p *pipeline, h stepHandler, out io.Writer) *runContext {
	if out == nil {
		out = os.Stdout
	}
	return &runContext{
		Context: ctx,
		owner:   p,
		handler: h,
		out:     out,
	}
}

type runContext struct {
	context.Context

	owner   *pipeline
	handler stepHandler
	out     io.Writer
}

func (rc *runContext) Name() string {
	return rc.handler.name()
}

func (rc *runContext) Params() types.Data {
	if base, ok := rc.handler.(*baseStepHandler); ok {
		return base.params
	}
	return nil
}

func (rc *runContext) Output() io.Writer {
	return rc.out
}

func (rc *runContext) CacheDir() string {
	dir := filepath.Join(rc.owner.opts.CachePath, "cache", sanitizeName(rc.handler.name()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Errorf("failed to create cache dir %s: %v", dir, err)
	}
	return dir
}

func (rc *runContext) Artifacts(key string) []any {
	var artifacts []any

	// groups are transparent: requiring one gathers from every member
	seen := map[string]bool{}
	var gather func(requirements []string)
	gather = func(requirements []string) {
		for _, requirement := range requirements {
			if seen[requirement] {
				continue
			}
			seen[requirement] = true

			required, exists := rc.owner.resolvedHandler(requirement)
			if !exists {
				continue
			}
			if group, ok := required.(*stepGroupHandler); ok {
				gather(group.members)
				continue
			}
			base, ok := required.(*baseStepHandler)
			if !ok {
				continue
			}
			gatherer, ok := base.step.(types.StepWithArtifacts)
			if !ok {
				continue
			}

			requiredRC := newRunContext(rc.Context, rc.owner, required, rc.out)
			artifacts = append(artifacts, gatherer.GatherArtifacts(requiredRC)[key]...)
		}
	}
	gather(rc.handler.requires())

	return artifacts
}

func (rc *runContext) ManageProcess(proc *os.Process) func() {
	return rc.owner.procs.manage(proc)
}

func sanitizeName(name string) string {
	replacer := strings.NewReplacer("/", "_", "[", "_", "]", "_", "=", "_", ",", "_", " ", "_")
	return replacer.Replace(name)
}
