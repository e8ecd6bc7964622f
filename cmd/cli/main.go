package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"biasclean/adapters/excel"
	"biasclean/adapters/memory"
	"biasclean/adapters/report"
	"biasclean/adapters/rng"
	"biasclean/app"
	"biasclean/domain/fairness"
	"biasclean/internal"
	"biasclean/internal/config"
	"biasclean/internal/metrics"
	"biasclean/internal/mitigation"
	"biasclean/internal/testkit"
)

var logLevel string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "biasclean",
		Short:         "Score and mitigate protected-attribute disparity in tabular datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (ERROR, WARN, INFO, DEBUG, TRACE); defaults to LOG_LEVEL")

	rootCmd.AddCommand(
		newDomainsCmd(),
		newScoreCmd(),
		newMitigateCmd(),
		newDemoCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newDomainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List supported domains and their default weight tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, d := range fairness.Domains() {
				table, err := d.DefaultWeights()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", d)
				for _, e := range table.Entries {
					fmt.Fprintf(out, "  %-22s %.2f\n", e.Attribute, e.Weight)
				}
			}
			return nil
		},
	}
}

// runFlags are shared by score and mitigate
type runFlags struct {
	domain      string
	outcome     string
	positive    string
	weights     string
	configPath  string
	categorical []string
	seed        int64
}

func (f *runFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.domain, "domain", "", "Domain whose weight table applies (required)")
	cmd.Flags().StringVar(&f.outcome, "outcome", "", "Outcome column (required)")
	cmd.Flags().StringVar(&f.positive, "positive", "", "Favourable outcome label (default: inferred)")
	cmd.Flags().StringVar(&f.weights, "weights", "", `Weight overrides as a JSON object, e.g. '{"Ethnicity":0.3}'`)
	cmd.Flags().StringVar(&f.configPath, "config", "", "YAML run configuration overlay")
	cmd.Flags().StringSliceVar(&f.categorical, "categorical", nil, "Columns to read as categorical even if numeric")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed (default: BIAS_SEED or 42)")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("outcome")
}

// request reads the dataset at path and assembles the run inputs
func (f *runFlags) request(cmd *cobra.Command, cfg *config.Config, path string, logger *internal.Logger) (app.MitigationRequest, error) {
	runCfg := cfg.RunConfig(f.outcome)
	if f.configPath != "" {
		var err error
		if runCfg, err = config.LoadRunConfig(f.configPath, runCfg); err != nil {
			return app.MitigationRequest{}, err
		}
	}
	if f.positive != "" {
		runCfg.PositiveOutcome = f.positive
	}
	if cmd.Flags().Changed("seed") {
		runCfg.Seed = f.seed
	}

	weights, err := parseWeights(f.weights)
	if err != nil {
		return app.MitigationRequest{}, err
	}

	readerCfg := excel.DefaultReaderConfig()
	readerCfg.Categorical = f.categorical
	ds, err := excel.NewDataReader(readerCfg, logger).Read(cmd.Context(), path)
	if err != nil {
		return app.MitigationRequest{}, err
	}
	return app.MitigationRequest{Dataset: ds, Domain: f.domain, Weights: weights, Config: runCfg}, nil
}

func parseWeights(raw string) (map[string]float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var weights map[string]float64
	if err := json.Unmarshal([]byte(raw), &weights); err != nil {
		return nil, fmt.Errorf("--weights must be a JSON object of attribute weights: %w", err)
	}
	return weights, nil
}

func newScoreCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "score [dataset]",
		Short: "Report baseline disparity without modifying the dataset",
		Long: `Score computes the per-attribute disparity ratios, significance and weighted
composite for a CSV or XLSX dataset and prints them as JSON.

Example: biasclean score loans.csv --domain finance --outcome approved --positive yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			req, err := flags.request(cmd, cfg, args[0], logger)
			if err != nil {
				return err
			}
			resp, err := newService(cfg, logger).Score(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	flags.bind(cmd)
	return cmd
}

func newMitigateCmd() *cobra.Command {
	var (
		flags      runFlags
		outPath    string
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "mitigate [dataset]",
		Short: "Run iterative bias mitigation on a dataset",
		Long: `Mitigate rebalances a CSV or XLSX dataset with constrained synthetic records
until disparity converges, then writes the mitigated dataset and a report.

The report format follows the --report extension: .html renders a standalone
page, anything else is Markdown. Without --report the Markdown goes to stdout.

Example: biasclean mitigate patients.xlsx --domain health --outcome treated --out balanced.xlsx --report run.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			req, err := flags.request(cmd, cfg, args[0], logger)
			if err != nil {
				return err
			}
			res, err := newService(cfg, logger).Mitigate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := excel.NewDataWriter().Write(cmd.Context(), outPath, res.Dataset); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d records to %s\n", res.Dataset.Len(), outPath)
			}
			return writeReport(cmd, res.Report, reportPath)
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&outPath, "out", "", "Write the mitigated dataset here (.csv or .xlsx)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the report here (.md or .html)")
	return cmd
}

func newDemoCmd() *cobra.Command {
	var (
		scenario   string
		domain     string
		records    int
		seed       int64
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Mitigate a generated dataset with known bias",
		Long: `Demo generates a synthetic population and runs mitigation on it.

Scenarios:
  justice  recidivism-style records scored on Ethnicity, Race and Gender
  uk       UK census-style population with domain-specific intersectional bias

Example: biasclean demo --scenario uk --domain hiring --records 2000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			req, err := demoRequest(cfg, scenario, domain, records, seed)
			if err != nil {
				return err
			}
			res, err := newService(cfg, logger).Mitigate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeReport(cmd, res.Report, reportPath)
		},
	}
	cmd.Flags().StringVar(&scenario, "scenario", "justice", "Scenario to generate (justice, uk)")
	cmd.Flags().StringVar(&domain, "domain", string(fairness.DomainHealth), "Domain for the uk scenario")
	cmd.Flags().IntVar(&records, "records", 1000, "Population size for the uk scenario")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Generator and run seed")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the report here (.md or .html)")
	return cmd
}

func demoRequest(cfg *config.Config, scenario, domain string, records int, seed int64) (app.MitigationRequest, error) {
	switch scenario {
	case "justice":
		gen := testkit.DefaultJusticeConfig()
		gen.Seed = seed
		ds, err := testkit.NewJusticeDataGenerator(gen).Generate()
		if err != nil {
			return app.MitigationRequest{}, err
		}
		weights := make(map[string]float64)
		for _, e := range testkit.JusticeWeights().Entries {
			weights[e.Attribute] = e.Weight
		}
		runCfg := cfg.RunConfig(testkit.ColTwoYearRecid)
		runCfg.Seed = seed
		return app.MitigationRequest{Dataset: ds, Domain: string(fairness.DomainJustice), Weights: weights, Config: runCfg}, nil
	case "uk":
		d, err := fairness.ParseDomain(domain)
		if err != nil {
			return app.MitigationRequest{}, err
		}
		gen := testkit.DefaultUKConfig()
		gen.Domain = d
		gen.Records = records
		gen.Seed = seed
		ds, err := testkit.NewUKDataGenerator(gen).Generate()
		if err != nil {
			return app.MitigationRequest{}, err
		}
		runCfg := cfg.RunConfig(testkit.ColOutcome)
		runCfg.Seed = seed
		return app.MitigationRequest{Dataset: ds, Domain: string(d), Config: runCfg}, nil
	default:
		return app.MitigationRequest{}, fmt.Errorf("unknown scenario %q (expected justice or uk)", scenario)
	}
}

func setup() (*config.Config, *internal.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	return cfg, internal.NewLoggerTo(os.Stderr, internal.ParseLogLevel(level)), nil
}

// newService builds an in-process service; reports live only for this command
func newService(cfg *config.Config, logger *internal.Logger) *app.MitigationService {
	engine := mitigation.NewEngine(rng.New(), logger)
	m := metrics.New(prometheus.NewRegistry())
	return app.NewMitigationService(engine, memory.NewReportRepository(), report.NewRenderer(), m, cfg.Server.MaxConcurrentRuns, logger)
}

func writeReport(cmd *cobra.Command, rep *fairness.Report, path string) error {
	renderer := report.NewRenderer()
	if path == "" {
		doc, err := renderer.Markdown(rep)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(doc)
		return err
	}

	render := renderer.Markdown
	if strings.HasSuffix(strings.ToLower(path), ".html") {
		render = renderer.HTML
	}
	doc, err := render(rep)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "run %s %s (%s): composite %.4f -> %.4f, report at %s\n",
		rep.RunID, rep.State, rep.Reason, rep.CompositeBefore, rep.CompositeAfter, path)
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
