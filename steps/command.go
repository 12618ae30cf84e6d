package steps

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	jujuerrors "github.com/juju/errors"

	"github.com/warriorguo/taskpipe/types"
)

var (
	_ types.Step = &CommandStep{}
)

/**
 * Command builds a step that runs one external program. The program name
 * is resolved on PATH when the step runs; a missing program surfaces as an
 * UnavailableInterpreterError so the run can skip it when configured to.
 */
func Command(program string, args ...string) *CommandStep {
	return &CommandStep{Program: program, Args: args}
}

type CommandStep struct {
	Program string
	Args    []string
	// Dir is the working directory, empty means the pipeline's.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
}

func (c *CommandStep) WithDir(dir string) *CommandStep {
	c.Dir = dir
	return c
}

func (c *CommandStep) WithEnv(env ...string) *CommandStep {
	c.Env = append(c.Env, env...)
	return c
}

func (c *CommandStep) Run(ctx types.StepContext) error {
	path, err := exec.LookPath(c.Program)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return types.NewUnavailableInterpreterError(c.Program)
		}
		return jujuerrors.Trace(err)
	}

	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	cmd.Stdout = ctx.Output()
	cmd.Stderr = ctx.Output()
	/**
	 * Each command gets its own process group so that an abort can kill
	 * the whole tree, children included, not just the direct child.
	 */
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	fmt.Fprintf(ctx.Output(), "$ %s\n", cmd.String())

	if err := cmd.Start(); err != nil {
		return jujuerrors.Annotatef(err, "failed to start %s", c.Program)
	}

	release := ctx.ManageProcess(cmd.Process)
	defer release()

	if err := cmd.Wait(); err != nil {
		return jujuerrors.Annotatef(err, "command %s failed", c.Program)
	}
	return nil
}
