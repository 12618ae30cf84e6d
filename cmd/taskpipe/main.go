package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warriorguo/taskpipe"
	"github.com/warriorguo/taskpipe/config"
	"github.com/warriorguo/taskpipe/types"
)

var (
	flagFile    string
	flagVerbose bool

	flagSteps  []string
	flagExcept []string
	flagOnly   bool

	flagJobs      int
	flagFailFast  bool
	flagClean     bool
	flagSetupOnly bool
	flagNoSetup   bool
	flagSkipMiss  bool
	flagCachePath string
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(types.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taskpipe",
		Short:         "taskpipe runs pipelines of dependent steps",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
			if flagVerbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&flagFile, "file", "f", "taskpipe.yaml", "pipeline definition file")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringSliceVarP(&flagSteps, "step", "s", nil, "steps to run, defaults to every run-by-default step")
	cmd.PersistentFlags().StringSliceVarP(&flagExcept, "except", "e", nil, "steps to exclude from the run")
	cmd.PersistentFlags().BoolVarP(&flagOnly, "only", "o", false, "run only the requested steps, without their requirements")
	cmd.PersistentFlags().StringVar(&flagCachePath, "cache-path", "", "override the pipeline cache directory")

	cmd.AddCommand(newRunCmd(), newListCmd(), newGraphCmd())
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the selected steps and everything they require",
		RunE: func(c *cobra.Command, _ []string) error {
			p, err := openPipeline()
			if err != nil {
				return err
			}
			defer p.Close(c.Context())

			return p.Execute(c.Context(), stepsArg(), flagExcept)
		},
	}

	cmd.Flags().IntVarP(&flagJobs, "jobs", "j", 0, "number of parallel jobs, 0 means one per CPU")
	cmd.Flags().BoolVar(&flagFailFast, "ff", false, "cancel pending steps as soon as one fails")
	cmd.Flags().BoolVarP(&flagClean, "clean", "c", false, "clean step caches before running")
	cmd.Flags().BoolVar(&flagSetupOnly, "setup-only", false, "run step setups but no step bodies")
	cmd.Flags().BoolVar(&flagNoSetup, "no-setup", false, "skip step setups")
	cmd.Flags().BoolVar(&flagSkipMiss, "skip-missing-interpreters", false, "mark steps with missing programs as skipped instead of failed")
	return cmd
}

func newListCmd() *cobra.Command {
	var withDependencies bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered steps, marking the ones the selection would run",
		RunE: func(c *cobra.Command, _ []string) error {
			p, err := openPipeline()
			if err != nil {
				return err
			}
			defer p.Close(c.Context())

			infos, err := p.ListSteps(stepsArg(), flagExcept)
			if err != nil {
				return err
			}

			for _, info := range infos {
				marker := " "
				if info.Selected {
					marker = "*"
				}
				line := fmt.Sprintf("%s %s", marker, info.Name)
				if withDependencies && len(info.Requires) > 0 {
					line += fmt.Sprintf(" -> %v", info.Requires)
				}
				if info.Description != "" {
					line += fmt.Sprintf("  (%s)", info.Description)
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withDependencies, "dependencies", false, "show each step's requirements")
	return cmd
}

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the selected dependency graph in Graphviz dot form",
		RunE: func(c *cobra.Command, _ []string) error {
			p, err := openPipeline()
			if err != nil {
				return err
			}
			defer p.Close(c.Context())

			dot, err := p.RenderGraph(stepsArg(), flagExcept)
			if err != nil {
				return err
			}
			fmt.Print(dot)
			return nil
		},
	}
}

/**
 * openPipeline loads the definition file, merges it with the command line
 * flags (flags win) and returns a pipeline with every declared step
 * registered.
 */
func openPipeline() (types.Pipeline, error) {
	def, err := config.Load(flagFile)
	if err != nil {
		return nil, err
	}

	opts := def.Options()
	if flagJobs > 0 {
		opts = append(opts, types.WithJobs(flagJobs))
	}
	if flagFailFast {
		opts = append(opts, types.WithFailFast())
	}
	if flagClean {
		opts = append(opts, types.WithClean())
	}
	if flagSetupOnly {
		opts = append(opts, types.WithSetupOnly())
	}
	if flagNoSetup {
		opts = append(opts, types.WithNoSetup())
	}
	if flagSkipMiss {
		opts = append(opts, types.WithSkipMissingInterpreters())
	}
	if flagOnly {
		opts = append(opts, types.WithOnlySelected())
	}
	if flagCachePath != "" {
		opts = append(opts, types.WithCachePath(flagCachePath))
	}

	p, err := taskpipe.New(opts...)
	if err != nil {
		return nil, err
	}
	if err := def.Apply(p); err != nil {
		return nil, err
	}
	return p, nil
}

func stepsArg() []string {
	if len(flagSteps) == 0 {
		return nil
	}
	return flagSteps
}
