package commands

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/serval-uni-lu/flakime/pkg/instrument"
)

const defaultSimulationRuns = 1000

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Estimate failure rates without editing any source",
		Long: `Compute the guards inject would insert and replay them --runs times per
test method. The observed failure rate of each method is compared with the
probability implied by the guard thresholds. The Model column is the test
probability reported by the model.`,
		Args: cobra.NoArgs,
		RunE: runSimulate,
	}

	addProjectFlags(cmd)
	addModelFlags(cmd)
	cmd.Flags().Int("runs", defaultSimulationRuns, "Simulated runs per test method")
	cmd.Flags().Uint64("seed", 0, "Random seed (0 = derive from the clock)")

	return cmd
}

type simulatedMethod struct {
	name        string
	probability float64
	effective   float64
	guards      int
	sim         instrument.Simulation
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, projectBindings, modelBindings)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	runs, err := cmd.Flags().GetInt("runs")
	if err != nil {
		return err
	}
	if runs <= 0 {
		return fmt.Errorf("--runs must be positive, got %d", runs)
	}
	seed, err := cmd.Flags().GetUint64("seed")
	if err != nil {
		return err
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	m, err := newModel(cfg, logger)
	if err != nil {
		return err
	}

	result, closeEditor, err := discoverProject(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeEditor()

	if err := m.PreProcess(ctx, result.Project, cfg.Model.FlakeRate); err != nil {
		return fmt.Errorf("preprocess %s: %w", m.Name(), err)
	}
	defer func() {
		if err := m.PostProcess(); err != nil {
			logger.Warn("postprocess failed", "model", m.Name(), "error", err)
		}
	}()

	engine := instrument.New(m, logger, instrument.WithDryRun(true))
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	var methods []simulatedMethod
	for _, test := range result.Project.TestMethods() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", instrument.ErrRunCancelled, err)
		}
		plan := engine.Plan(test, cfg.Model.FlakeRate)
		if plan.Skip() {
			continue
		}
		methods = append(methods, simulatedMethod{
			name:        test.LongName,
			probability: plan.Probability,
			effective:   plan.Guards.FailureProbability(),
			guards:      len(plan.Guards),
			sim:         plan.Guards.Simulate(rng, runs),
		})
	}

	logger.Debug("simulation finished", "methods", len(methods), "runs", runs, "seed", seed)
	fmt.Fprintln(cmd.OutOrStdout(), renderSimulation(methods, runs))
	return nil
}

func renderSimulation(methods []simulatedMethod, runs int) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle("Simulation (" + strconv.Itoa(runs) + " runs per method)")
	tbl.AppendHeader(table.Row{"Method", "Guards", "Model", "Expected", "Observed", "Failures"})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	failures := 0
	for _, m := range methods {
		failures += m.sim.Failures
		tbl.AppendRow(table.Row{
			m.name,
			m.guards,
			fmt.Sprintf("%.4f", m.probability),
			fmt.Sprintf("%.4f", m.effective),
			fmt.Sprintf("%.4f", m.sim.FailureRate()),
			m.sim.Failures,
		})
	}
	tbl.AppendFooter(table.Row{"Total: " + strconv.Itoa(len(methods)) + " methods", "", "", "", "", failures})
	return tbl.Render()
}
