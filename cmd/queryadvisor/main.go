package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leengari/query-advisor/internal/audit"
	"github.com/leengari/query-advisor/internal/indexadvisor"
	"github.com/leengari/query-advisor/internal/logging"
	"github.com/leengari/query-advisor/internal/pipeline"
	"github.com/leengari/query-advisor/internal/report"
	"github.com/leengari/query-advisor/internal/stats"
	"github.com/leengari/query-advisor/internal/telemetry"
)

var (
	queryID       string
	queryText     string
	queryFile     string
	reportKinds   []string
	outputDir     string
	dbPath        string
	changelogPath string
	traceEnabled  bool
	frequency     string
	queryCost     float64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "queryadvisor",
	Short: "Heuristic SQL query optimization advisor",
	Long:  `Analyzes SQL queries with static heuristics: table dependencies, cardinality estimates, greedy join ordering, and index recommendations with impact scores.`,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one query and emit advisory reports",
	Long:  `Run the full advisory pipeline over a query given via --query or --file and write the selected reports to the output directory and/or a sqlite database.`,
	RunE:  runAnalyze,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the built-in table statistics",
	RunE:  runStats,
}

func init() {
	analyzeCmd.Flags().StringVar(&queryID, "id", "", "Query identifier (default: generated UUID)")
	analyzeCmd.Flags().StringVar(&queryText, "query", "", "SQL query text")
	analyzeCmd.Flags().StringVar(&queryFile, "file", "", "Path to a file holding the SQL query")
	analyzeCmd.Flags().StringSliceVar(&reportKinds, "reports", nil, "Report kinds to emit (default: all)")
	analyzeCmd.Flags().StringVar(&outputDir, "out", "./reports", "Output directory for JSON reports")
	analyzeCmd.Flags().StringVar(&dbPath, "db", "", "Optional sqlite database to also store reports in")
	analyzeCmd.Flags().StringVar(&changelogPath, "changelog", "", "Optional audit changelog file (JSON lines)")
	analyzeCmd.Flags().BoolVar(&traceEnabled, "trace", false, "Emit trace spans to stdout")
	analyzeCmd.Flags().StringVar(&frequency, "frequency", "", "How often the query runs: low, medium, or high")
	analyzeCmd.Flags().Float64Var(&queryCost, "query-cost", 0, "Estimated cost of the query without new indexes")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statsCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	sql, err := loadQuery()
	if err != nil {
		return err
	}

	logger, closeLogger := logging.Setup()
	defer closeLogger()

	shutdownTracing, err := telemetry.Setup(traceEnabled)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	ctx := context.Background()
	defer func() { _ = shutdownTracing(ctx) }()

	observers := audit.Observers{audit.NewLoggingObserver(logger)}
	if changelogPath != "" {
		changelog, closeChangelog, err := audit.NewChangelogObserver(changelogPath)
		if err != nil {
			return err
		}
		defer closeChangelog()
		observers = append(observers, changelog)
	}

	var sinks []report.Sink
	fileSink, err := report.NewFileSink(outputDir)
	if err != nil {
		return err
	}
	sinks = append(sinks, fileSink)
	if dbPath != "" {
		dbSink, err := report.OpenSQLiteSink(dbPath)
		if err != nil {
			return err
		}
		defer dbSink.Close()
		sinks = append(sinks, dbSink)
	}

	kinds, err := parseKinds(reportKinds)
	if err != nil {
		return err
	}
	profile, err := parseProfile()
	if err != nil {
		return err
	}

	p := pipeline.New(stats.Default(), observers, logger)
	analysis := p.Analyze(ctx, pipeline.Handle{ID: queryID, SQL: sql}, profile)
	if err := p.Publish(ctx, analysis, kinds, sinks...); err != nil {
		return fmt.Errorf("publish reports: %w", err)
	}

	fmt.Printf("Analyzed query %s: %d tables, %d join steps, %d index recommendations\n",
		analysis.QueryID,
		len(analysis.Dependencies.Tables),
		len(analysis.Plan.Steps),
		len(analysis.SingleColumn)+len(analysis.Composite))
	fmt.Printf("Reports written to %s\n", outputDir)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	data, err := json.MarshalIndent(stats.Default(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func loadQuery() (string, error) {
	switch {
	case queryText != "" && queryFile != "":
		return "", fmt.Errorf("use either --query or --file, not both")
	case queryText != "":
		return queryText, nil
	case queryFile != "":
		data, err := os.ReadFile(queryFile)
		if err != nil {
			return "", fmt.Errorf("read query file: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("a query is required via --query or --file")
	}
}

func parseKinds(names []string) ([]report.Kind, error) {
	if len(names) == 0 {
		return nil, nil
	}
	valid := map[report.Kind]struct{}{}
	for _, k := range report.AllKinds() {
		valid[k] = struct{}{}
	}
	var kinds []report.Kind
	for _, name := range names {
		k := report.Kind(strings.TrimSpace(name))
		if _, ok := valid[k]; !ok {
			return nil, fmt.Errorf("unknown report kind %q", name)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func parseProfile() (*indexadvisor.QueryProfile, error) {
	if frequency == "" && queryCost == 0 {
		return nil, nil
	}
	profile := &indexadvisor.QueryProfile{CostWithoutIndex: queryCost}
	switch strings.ToLower(frequency) {
	case "":
	case "low":
		profile.Frequency = stats.FrequencyLow
	case "medium":
		profile.Frequency = stats.FrequencyMedium
	case "high":
		profile.Frequency = stats.FrequencyHigh
	default:
		return nil, fmt.Errorf("unknown frequency %q (want low, medium, or high)", frequency)
	}
	return profile, nil
}
