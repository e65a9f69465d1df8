package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"labsignal/adapters/dataset"
	"labsignal/adapters/excel"
	"labsignal/adapters/render"
	"labsignal/app"
	"labsignal/domain/insight"
	"labsignal/internal/config"
	"labsignal/internal/container"
	"labsignal/internal/errors"
	"labsignal/internal/testkit"
)

// options are the analysis flags shared by every command that reads a dataset
type options struct {
	unitSystem  string
	window      int
	lang        string
	currentDose float64
	offset      float64
	markers     []string
	priorsFile  string
	output      string
	format      string
}

var opts options

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error [%s]: %v\n", errors.ResolveCode(err), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts = options{}
	rootCmd := &cobra.Command{
		Use:           "labsignal",
		Short:         "Analyze lab results against a TRT protocol history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.unitSystem, "units", "", "Unit system: eu|us (default from UNIT_SYSTEM)")
	pf.IntVar(&opts.window, "window", 0, "Event window in days, clamped to 21..90 (default from WINDOW_DAYS)")
	pf.StringVar(&opts.lang, "lang", "", "Narrative language: en|nl (default from LANGUAGE)")
	pf.Float64Var(&opts.currentDose, "current-dose", 0, "Current weekly dose in mg, overrides the latest protocol")
	pf.Float64Var(&opts.offset, "offset", 0, "Suggested dose offset in mg/week (default from SUGGESTED_DOSE_OFFSET)")
	pf.StringSliceVar(&opts.markers, "markers", nil, "Restrict series and predictions to these markers")
	pf.StringVar(&opts.priorsFile, "priors", "", "Study priors file, YAML or JSON (default from PRIORS_FILE)")
	pf.StringVarP(&opts.output, "output", "o", "", "Write output to this file instead of stdout")
	pf.StringVar(&opts.format, "format", "json", "Structured output format: json|yaml")

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newPartCmd("series", "Converted marker series with trends", func(s *app.AnalysisService) runner {
			return wrap(s.Series)
		}),
		newPartCmd("events", "Protocol-change events with before/after marker impacts", func(s *app.AnalysisService) runner {
			return wrap(s.Events)
		}),
		newPartCmd("predict", "Dose-response predictions per marker", func(s *app.AnalysisService) runner {
			return wrap(s.Predictions)
		}),
		newPartCmd("alerts", "Projected clinical threshold crossings", func(s *app.AnalysisService) runner {
			return wrap(s.Alerts)
		}),
		newPartCmd("stability", "Stability of the current protocol", func(s *app.AnalysisService) runner {
			return wrap(s.Stability)
		}),
		newReportCmd(),
		newChartCmd(),
		newExportCmd(),
		newImportCmd(),
		newDemoCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// setup loads .env and the environment, applies flags and wires the container
func setup(cmd *cobra.Command) (*container.Container, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if opts.unitSystem != "" {
		cfg.Analysis.UnitSystem = strings.ToLower(opts.unitSystem)
	}
	if opts.lang != "" {
		cfg.Analysis.Language = strings.ToLower(opts.lang)
	}
	if flags.Changed("offset") {
		cfg.Analysis.SuggestedDoseOffset = opts.offset
	}
	if opts.priorsFile != "" {
		cfg.Paths.PriorsFile = opts.priorsFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return container.New(cfg)
}

// request builds an analysis request for the dataset at path
func request(ctx context.Context, cmd *cobra.Command, path string) (app.AnalysisRequest, error) {
	ds, err := dataset.NewFileSource(path).LoadDataset(ctx)
	if err != nil {
		return app.AnalysisRequest{}, err
	}
	req := app.AnalysisRequest{
		Dataset:    ds,
		WindowDays: opts.window,
		Markers:    opts.markers,
	}
	if cmd.Flags().Changed("current-dose") {
		dose := opts.currentDose
		req.CurrentDose = &dose
	}
	return req, nil
}

type runner func(context.Context, app.AnalysisRequest) (interface{}, error)

func wrap[T any](run func(context.Context, app.AnalysisRequest) (T, error)) runner {
	return func(ctx context.Context, req app.AnalysisRequest) (interface{}, error) {
		return run(ctx, req)
	}
}

func newAnalyzeCmd() *cobra.Command {
	return newPartCmd("analyze", "Run every analysis and print the dashboard", func(s *app.AnalysisService) runner {
		return wrap(s.Analyze)
	})
}

// newPartCmd builds a command that prints one analysis as JSON or YAML
func newPartCmd(name, short string, pick func(*app.AnalysisService) runner) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [dataset-file]",
		Short: short,
		Long: short + `.

The dataset may be JSON, YAML, XLSX or CSV.

Example: labsignal ` + name + ` labs.xlsx --units us --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd)
			if err != nil {
				return err
			}
			req, err := request(cmd.Context(), cmd, args[0])
			if err != nil {
				return err
			}
			out, err := pick(c.Analysis)(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeStructured(opts.output, opts.format, out)
		},
	}
}

func analyze(cmd *cobra.Command, path string) (*container.Container, *insight.Dashboard, error) {
	c, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	req, err := request(cmd.Context(), cmd, path)
	if err != nil {
		return nil, nil, err
	}
	dash, err := c.Analysis.Analyze(cmd.Context(), req)
	return c, dash, err
}

func newReportCmd() *cobra.Command {
	var asHTML bool

	cmd := &cobra.Command{
		Use:   "report [dataset-file]",
		Short: "Render a readable report of every analysis",
		Long: `Render a markdown report of stability, protocol changes, dose response and
projected threshold crossings. With --html the report is a standalone page.

Example: labsignal report labs.csv --lang nl --html -o report.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, dash, err := analyze(cmd, args[0])
			if err != nil {
				return err
			}
			body := render.Markdown(dash)
			if asHTML {
				body = render.HTML(dash)
			}
			return writeBytes(opts.output, body)
		},
	}

	cmd.Flags().BoolVar(&asHTML, "html", false, "Render HTML instead of markdown")
	return cmd
}

func newChartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chart [dataset-file]",
		Short: "Render marker series as an HTML page of line charts",
		Long: `Render every selected marker series as a line chart with reference bounds,
target zones and clinical thresholds.

Example: labsignal chart labs.xlsx --markers Hematocrit,Estradiol -o charts.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, dash, err := analyze(cmd, args[0])
			if err != nil {
				return err
			}
			w, closeFn, err := openOutput(opts.output)
			if err != nil {
				return err
			}
			if err := render.NewChartRenderer(c.Catalog).Page(dash, w); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [dataset-file]",
		Short: "Export the dashboard as an xlsx workbook",
		Long: `Export every analysis into one workbook with a sheet per section.

Example: labsignal export labs.csv -o dashboard.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output == "" {
				return errors.InvalidInput("export needs --output")
			}
			_, dash, err := analyze(cmd, args[0])
			if err != nil {
				return err
			}
			w, closeFn, err := openOutput(opts.output)
			if err != nil {
				return err
			}
			if err := excel.WriteDashboard(*dash, w); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [input-file] [output-file]",
		Short: "Convert a lab workbook or CSV into a dataset file",
		Long: `Read lab results from XLSX, CSV, JSON or YAML and write them as a dataset.
The output format follows the output file extension (.json, .yaml or .xlsx).
Rows that cannot be imported are logged and skipped.

Example: labsignal import export-from-lab.csv labs.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(cmd); err != nil {
				return err
			}
			ds, err := dataset.NewFileSource(args[0]).LoadDataset(cmd.Context())
			if err != nil {
				return err
			}
			format := dataset.FormatOf(args[1])
			if format == "" || format == dataset.FormatCSV {
				return errors.UnsupportedFormat(args[1])
			}
			w, closeFn, err := openOutput(args[1])
			if err != nil {
				return err
			}
			if err := dataset.Encode(w, ds, format); err != nil {
				closeFn()
				return err
			}
			fmt.Fprintf(os.Stderr, "imported %d reports, %d protocols into %s\n", len(ds.Reports), len(ds.Protocols), args[1])
			return closeFn()
		},
	}
}

func newDemoCmd() *cobra.Command {
	var seed int64
	var dutch bool
	var noise float64

	cmd := &cobra.Command{
		Use:   "demo [output-file]",
		Short: "Generate a synthetic year of TRT bloodwork",
		Long: `Generate a deterministic dataset with a baseline and three dose phases.
Without an output file the dataset is printed as JSON.

Example: labsignal demo demo.yaml --seed 7 --dutch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := testkit.DefaultTRTConfig()
			cfg.Seed = seed
			cfg.DutchNames = dutch
			if cmd.Flags().Changed("noise") {
				cfg.Noise = noise
			}
			ds := testkit.NewTRTDataGenerator(cfg).Generate()

			path, format := "", dataset.FormatJSON
			if len(args) == 1 {
				path = args[0]
				format = dataset.FormatOf(path)
				if format == "" || format == dataset.FormatCSV {
					return errors.UnsupportedFormat(path)
				}
			}
			w, closeFn, err := openOutput(path)
			if err != nil {
				return err
			}
			if err := dataset.Encode(w, ds, format); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().BoolVar(&dutch, "dutch", false, "Use Dutch marker names")
	cmd.Flags().Float64Var(&noise, "noise", 0.03, "Relative measurement noise")
	return cmd
}

func newServeCmd() *cobra.Command {
	var datasetFile string
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and JSON API",
		Long: `Start the web server. Requests without a dataset analyze --dataset
(or DATASET_FILE) when it is set.

Example: labsignal serve --dataset labs.xlsx --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd)
			if err != nil {
				return err
			}
			if datasetFile != "" || port != "" {
				if datasetFile != "" {
					c.Config.Paths.Dataset = datasetFile
				}
				if port != "" {
					c.Config.Server.Port = port
				}
				if err := c.Config.Validate(); err != nil {
					return err
				}
				if c, err = container.New(c.Config); err != nil {
					return err
				}
			}
			srv, err := c.Server()
			if err != nil {
				return err
			}
			return srv.Start(c.Addr())
		},
	}

	cmd.Flags().StringVar(&datasetFile, "dataset", "", "Dataset file served by default")
	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (default from PORT)")
	return cmd
}
