package config

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/juju/errors"

	"github.com/warriorguo/taskpipe/steps"
	"github.com/warriorguo/taskpipe/types"
)

/**
 * Definition is the YAML form of a pipeline: defaults for the run plus
 * the command steps and groups to register. Flags given on the command
 * line win over the defaults declared here.
 */
type Definition struct {
	Jobs      int    `yaml:"jobs"`
	FailFast  bool   `yaml:"fail_fast"`
	CachePath string `yaml:"cache_path"`

	SkipMissingInterpreters bool `yaml:"skip_missing_interpreters"`

	Steps  []StepDefinition  `yaml:"steps"`
	Groups []GroupDefinition `yaml:"groups"`
}

type StepDefinition struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Command     []string `yaml:"command"`
	Dir         string   `yaml:"dir"`
	Env         []string `yaml:"env"`

	Requires     []string `yaml:"requires"`
	RunByDefault *bool    `yaml:"run_by_default"`

	Params types.Data   `yaml:"params"`
	Matrix []types.Data `yaml:"matrix"`
}

type GroupDefinition struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Requires    []string `yaml:"requires"`

	RunByDefault *bool `yaml:"run_by_default"`
}

func Load(path string) (*Definition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to read pipeline definition %s", path)
	}
	return Parse(b)
}

func Parse(b []byte) (*Definition, error) {
	def := &Definition{}
	if err := yaml.Unmarshal(b, def); err != nil {
		return nil, errors.Annotatef(err, "failed to parse pipeline definition")
	}

	for i, step := range def.Steps {
		if step.Name == "" {
			return nil, errors.BadRequestf("step #%d has no name", i+1)
		}
		if len(step.Command) == 0 {
			return nil, errors.BadRequestf("step %s has no command", step.Name)
		}
	}
	for i, group := range def.Groups {
		if group.Name == "" {
			return nil, errors.BadRequestf("group #%d has no name", i+1)
		}
	}
	return def, nil
}

// Options converts the definition's defaults to pipeline options.
func (d *Definition) Options() []types.PipelineOption {
	opts := make([]types.PipelineOption, 0, 4)
	if d.Jobs > 0 {
		opts = append(opts, types.WithJobs(d.Jobs))
	}
	if d.FailFast {
		opts = append(opts, types.WithFailFast())
	}
	if d.CachePath != "" {
		opts = append(opts, types.WithCachePath(d.CachePath))
	}
	if d.SkipMissingInterpreters {
		opts = append(opts, types.WithSkipMissingInterpreters())
	}
	return opts
}

// Apply registers every declared step and group on the pipeline.
func (d *Definition) Apply(p types.Pipeline) error {
	for _, step := range d.Steps {
		cmd := steps.Command(step.Command[0], step.Command[1:]...)
		if step.Dir != "" {
			cmd.WithDir(step.Dir)
		}
		if len(step.Env) > 0 {
			cmd.WithEnv(step.Env...)
		}

		opts := []types.StepOption{
			types.WithDescription(step.Description),
			types.WithRequires(step.Requires...),
		}
		if step.RunByDefault != nil {
			opts = append(opts, types.WithRunByDefault(*step.RunByDefault))
		}
		if len(step.Params) > 0 {
			opts = append(opts, types.WithParams(step.Params))
		}
		if len(step.Matrix) > 0 {
			opts = append(opts, types.WithMatrix(step.Matrix...))
		}

		if err := p.RegisterStep(step.Name, cmd, opts...); err != nil {
			return errors.Trace(err)
		}
	}

	for _, group := range d.Groups {
		opts := []types.StepOption{
			types.WithDescription(group.Description),
		}
		if group.RunByDefault != nil {
			opts = append(opts, types.WithRunByDefault(*group.RunByDefault))
		}

		if err := p.RegisterStepGroup(group.Name, group.Requires, opts...); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}
