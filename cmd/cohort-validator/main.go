// Command cohort-validator validates cohort documents against a set of
// phenotype class definitions.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	cv "github.com/cohortkit/validator"
	"github.com/cohortkit/validator/cache"
	"github.com/cohortkit/validator/cohort"
	"github.com/cohortkit/validator/engine"
	"github.com/cohortkit/validator/hub"
	"github.com/cohortkit/validator/provider"
	"github.com/cohortkit/validator/schema"
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// config mirrors the optional YAML configuration file. Command-line
// flags override anything set here.
type config struct {
	SchemaURL  string        `yaml:"schema_url"`
	SchemaFile string        `yaml:"schema_file"`
	Timeout    time.Duration `yaml:"timeout"`
	Cache      bool          `yaml:"cache"`
	Workers    int           `yaml:"workers"`
	MaxIssues  int           `yaml:"max_issues"`
	Verbose    bool          `yaml:"verbose"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

type rootFlags struct {
	configPath string
	schemaURL  string
	schemaFile string
	verbose    bool
}

type validateFlags struct {
	format    string
	out       string
	maxIssues int
	workers   int
}

func main() {
	var rf rootFlags

	root := &cobra.Command{
		Use:   "cohort-validator",
		Short: "Validate cohort phenotype definitions",
		Long: "cohort-validator checks every phenotype in a cohort document against\n" +
			"its class definition and reports missing required parameters.",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&rf.configPath, "config", "", "Path to YAML config file")
	pf.StringVar(&rf.schemaURL, "schema-url", "", "Fetch class definitions from this URL")
	pf.StringVar(&rf.schemaFile, "schema-file", "", "Load class definitions from this file")
	pf.BoolVarP(&rf.verbose, "verbose", "v", false, "Enable debug logging")

	var vf validateFlags
	validateCmd := &cobra.Command{
		Use:   "validate <cohort-file>...",
		Short: "Validate one or more cohort documents",
		Long: "Validate reads each cohort document, checks every phenotype, and\n" +
			"prints a report. Use \"-\" to read a single document from stdin.\n" +
			"Exits 1 when any issues are found.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(rf, vf, args)
		},
	}
	f := validateCmd.Flags()
	f.StringVar(&vf.format, "format", "text", "Output format: text or json")
	f.StringVar(&vf.out, "out", "", "Write output to file instead of stdout")
	f.IntVar(&vf.maxIssues, "max-issues", 0, "Stop after this many issues (0 = unlimited)")
	f.IntVar(&vf.workers, "workers", 0, "Concurrent validations for multiple files (0 = NumCPU)")

	watchCmd := &cobra.Command{
		Use:   "watch <cohort-file>",
		Short: "Revalidate a cohort document whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runWatch(rf, args[0])
		},
	}

	classesCmd := &cobra.Command{
		Use:   "classes",
		Short: "List the known phenotype classes",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return runClasses(rf)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Printf("cohort-validator %s (schema %s)\n", cv.Version, cv.SchemaV1)
		},
	}

	root.AddCommand(validateCmd, watchCmd, classesCmd, versionCmd)

	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		os.Exit(2)
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Development = true
		cfg.Encoding = "console"
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// buildRegistry assembles the definition source chain: explicit file,
// then explicit URL, then the embedded defaults.
func buildRegistry(ctx context.Context, rf rootFlags, cfg config, logger *zap.Logger) (*schema.Registry, error) {
	schemaFile := rf.schemaFile
	if schemaFile == "" {
		schemaFile = cfg.SchemaFile
	}
	schemaURL := rf.schemaURL
	if schemaURL == "" {
		schemaURL = cfg.SchemaURL
	}

	var sources []schema.Source
	if schemaFile != "" {
		sources = append(sources, schema.NewFileSource(schemaFile))
	}
	if schemaURL != "" {
		httpOpts := []schema.HTTPOption{}
		if cfg.Timeout > 0 {
			httpOpts = append(httpOpts, schema.WithTimeout(cfg.Timeout))
		}
		var src schema.Source = schema.NewHTTPSource(schemaURL, httpOpts...)
		if cfg.Cache {
			src = schema.NewCachingSource(src, schemaURL, cache.New[string, schema.Document](8))
		}
		sources = append(sources, src)
	}
	sources = append(sources, schema.NewEmbeddedSource())

	reg := schema.NewRegistry(schema.NewChain(sources...), schema.WithRegistryLogger(logger))
	if err := reg.Load(ctx); err != nil {
		return nil, fmt.Errorf("load class definitions: %w", err)
	}
	return reg, nil
}

func runValidate(rf rootFlags, vf validateFlags, paths []string) error {
	cfg, err := loadConfig(rf.configPath)
	if err != nil {
		return codeError(3, "%s", err)
	}
	if vf.format != "text" && vf.format != "json" {
		return codeError(3, "--format must be text or json, got %q", vf.format)
	}

	logger := newLogger(rf.verbose || cfg.Verbose)
	defer logger.Sync()

	ctx := context.Background()
	reg, err := buildRegistry(ctx, rf, cfg, logger)
	if err != nil {
		return codeError(3, "%s", err)
	}

	maxIssues := vf.maxIssues
	if maxIssues == 0 {
		maxIssues = cfg.MaxIssues
	}
	workers := vf.workers
	if workers == 0 {
		workers = cfg.Workers
	}

	opts := []cv.Option{cv.WithLogger(logger), cv.WithMaxIssues(maxIssues)}
	if workers > 0 {
		opts = append(opts, cv.WithWorkerCount(workers))
	}
	validator := engine.New(reg, opts...)

	cohorts := make([]*cohort.Cohort, 0, len(paths))
	names := make([]string, 0, len(paths))
	for _, path := range paths {
		c, err := readCohort(path)
		if err != nil {
			return codeError(3, "%s", err)
		}
		cohorts = append(cohorts, c)
		names = append(names, path)
	}

	reports := validator.ValidateBatch(ctx, cohorts)

	out := os.Stdout
	if vf.out != "" {
		file, err := os.Create(vf.out)
		if err != nil {
			return codeError(3, "create output file: %s", err)
		}
		defer file.Close()
		out = file
	}

	totalIssues := 0
	for i, report := range reports {
		totalIssues += report.IssueCount
		if err := writeReport(out, vf.format, names[i], report); err != nil {
			return codeError(3, "write report: %s", err)
		}
		report.Release()
	}

	if totalIssues > 0 {
		return codeError(1, "%d issue(s) found", totalIssues)
	}
	return nil
}

func readCohort(path string) (*cohort.Cohort, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	c, err := cohort.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func writeReport(w io.Writer, format, name string, report *cv.Report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			File string `json:"file"`
			*cv.Report
		}{File: name, Report: report})
	}

	if !report.HasIssues() {
		fmt.Fprintf(w, "%s: ok\n", name)
		return nil
	}

	fmt.Fprintf(w, "%s: %d issue(s)\n", name, report.IssueCount)
	for _, entry := range report.Entries {
		label := entry.PhenotypeName
		if label == "" {
			label = entry.ID
		}
		for _, issue := range entry.Issues {
			fmt.Fprintf(w, "  %s: %s\n", label, issue)
		}
	}
	return nil
}

func runWatch(rf rootFlags, path string) error {
	cfg, err := loadConfig(rf.configPath)
	if err != nil {
		return codeError(3, "%s", err)
	}

	logger := newLogger(rf.verbose || cfg.Verbose)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := buildRegistry(ctx, rf, cfg, logger)
	if err != nil {
		return codeError(3, "%s", err)
	}
	validator := engine.New(reg, cv.WithLogger(logger))

	fileProvider, err := provider.NewFile(path, provider.WithFileLogger(logger))
	if err != nil {
		return codeError(3, "%s", err)
	}
	if err := fileProvider.Start(ctx); err != nil {
		return codeError(3, "%s", err)
	}
	defer fileProvider.Stop()

	h := hub.New(validator, fileProvider, hub.WithLogger(logger))
	defer h.Close()

	sub := h.AddListener(func(report *cv.Report) {
		if err := writeReport(os.Stdout, "text", path, report); err != nil {
			logger.Error("write report", zap.Error(err))
		}
	})
	defer sub.Remove()

	<-ctx.Done()
	return nil
}

func runClasses(rf rootFlags) error {
	cfg, err := loadConfig(rf.configPath)
	if err != nil {
		return codeError(3, "%s", err)
	}

	logger := newLogger(rf.verbose || cfg.Verbose)
	defer logger.Sync()

	reg, err := buildRegistry(context.Background(), rf, cfg, logger)
	if err != nil {
		return codeError(3, "%s", err)
	}

	for _, class := range reg.Classes() {
		params, _ := reg.Definition(class)
		required := 0
		for _, p := range params {
			if p.Required {
				required++
			}
		}
		fmt.Printf("%-28s %d parameter(s), %d required\n", class, len(params), required)
	}
	return nil
}
