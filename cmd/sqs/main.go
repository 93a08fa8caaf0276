// Command sqs runs a search or a single-configuration analysis
// directly from the command line, without a daemon: read a structure
// and a settings document from disk, drive pkg/engine, and write the
// result document back out.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/latticeforge/sqs/pkg/engine"
	"github.com/latticeforge/sqs/pkg/observability"
	"github.com/latticeforge/sqs/pkg/resultdoc"
	"github.com/latticeforge/sqs/pkg/settings"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		if len(os.Args) < 3 {
			fmt.Println("Error: run requires a subcommand: iteration, analysis")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "iteration":
			handleRunIteration(os.Args[3:])
		case "analysis":
			handleRunAnalysis(os.Args[3:])
		default:
			fmt.Printf("Unknown run subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "params":
		handleParams(os.Args[2:])
	case "version":
		fmt.Printf("sqs version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		showUsage()
		os.Exit(1)
	}
}

func handleRunIteration(args []string) {
	fs := flag.NewFlagSet("run iteration", flag.ExitOnError)
	var (
		structureFile = fs.String("structure", "", "path to structure document (YAML or JSON, required)")
		settingsFile  = fs.String("settings", "", "path to settings document (YAML or JSON)")
		output        = fs.String("output", "", "output path (default: <structure>.result.<dump-format>)")
		dumpFormat    = fs.String("dump-format", "yaml", "output encoding: yaml or json")
		logLevel      = fs.String("log-level", "info", "log level: debug, info, warn, error")
		dumpObjective = fs.Bool("dump-objective", false, "include each retained configuration's objective value")
		dumpParams    = fs.Bool("dump-parameters", false, "include each retained configuration's SRO parameter tensor")
		dumpTimings   = fs.Bool("dump-timings", false, "include per-thread timing samples")
	)
	fs.Parse(args)

	if *structureFile == "" {
		fmt.Println("Error: -structure is required")
		fs.Usage()
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(*logLevel), os.Stderr)

	structureRecord, err := readStructure(*structureFile)
	fatalOn(err)
	structure, err := structureRecord.Build()
	fatalOn(err)

	raw, err := readSettings(*settingsFile)
	fatalOn(err)

	outcome, err := engine.Run(context.Background(), raw, structure, nil, "")
	fatalOn(err)

	logger.Info("run completed", map[string]interface{}{
		"iterations": outcome.Iterations,
		"elapsed":    outcome.Elapsed,
		"retained":   len(outcome.Entries),
	})

	var timings map[int][]float64
	if *dumpTimings {
		timings = outcome.Timings
	}
	fields := resultdoc.Fields{Objective: *dumpObjective, Parameters: *dumpParams}
	var paramSource resultdoc.ParameterSource
	if *dumpParams {
		paramSource = func(rank int, configuration []int) [][][]float64 {
			return outcome.Parameters(configuration)
		}
	}
	var which []int
	if outcome.Settings.Composition.IsSublattice {
		which = outcome.Settings.Composition.Which
	}
	doc := resultdoc.BuildDocument(structure, outcome.Entries, outcome.Species, which, fields, paramSource, timings)

	format := resultdoc.FormatYAML
	if *dumpFormat == "json" {
		format = resultdoc.FormatJSON
	}
	encoded, err := resultdoc.Marshal(doc, format)
	fatalOn(err)

	outPath := *output
	if outPath == "" {
		outPath = defaultOutputPath(*structureFile, *dumpFormat)
	}
	fatalOn(os.WriteFile(outPath, encoded, 0644))
	fmt.Printf("wrote %s\n", outPath)
}

func handleRunAnalysis(args []string) {
	fs := flag.NewFlagSet("run analysis", flag.ExitOnError)
	var (
		structureFile  = fs.String("structure", "", "path to structure document (YAML or JSON, required)")
		settingsFile   = fs.String("settings", "", "path to settings document (YAML or JSON, composition ignored)")
		configurationS = fs.String("configuration", "", "comma-separated species symbol per site, e.g. Na,Na,Cl,Cl (required)")
		output         = fs.String("output", "", "output path (default: stdout)")
		dumpFormat     = fs.String("dump-format", "yaml", "output encoding: yaml or json")
	)
	fs.Parse(args)

	if *structureFile == "" || *configurationS == "" {
		fmt.Println("Error: -structure and -configuration are required")
		fs.Usage()
		os.Exit(1)
	}

	structureRecord, err := readStructure(*structureFile)
	fatalOn(err)
	structure, err := structureRecord.Build()
	fatalOn(err)

	raw, err := readSettings(*settingsFile)
	fatalOn(err)

	configuration := strings.Split(*configurationS, ",")
	for i := range configuration {
		configuration[i] = strings.TrimSpace(configuration[i])
	}

	result, err := engine.Analyze(raw, structure, configuration)
	fatalOn(err)

	payload := map[string]interface{}{
		"mole_fractions": result.MoleFractions,
		"parameters":     result.Parameters.Alpha,
		"objective":      result.Objective,
	}

	format := resultdoc.FormatYAML
	if *dumpFormat == "json" {
		format = resultdoc.FormatJSON
	}
	var encoded []byte
	if format == resultdoc.FormatJSON {
		encoded, err = json.MarshalIndent(payload, "", "  ")
	} else {
		encoded, err = yaml.Marshal(payload)
	}
	fatalOn(err)

	if *output == "" {
		os.Stdout.Write(encoded)
		return
	}
	fatalOn(os.WriteFile(*output, encoded, 0644))
	fmt.Printf("wrote %s\n", *output)
}

func handleParams(args []string) {
	fmt.Println("Default search parameters:")
	fmt.Printf("  atol:                      %v\n", settings.DefaultAtol)
	fmt.Printf("  rtol:                      %v\n", settings.DefaultRtol)
	fmt.Println("  mode:                      random")
	fmt.Println("  iterations:                1e5 (random), exhaustive (systematic)")
	fmt.Println("  max_output_configurations: 10")
	fmt.Println("  threads_per_rank:          -1 (NUM_THREADS if set, else GOMAXPROCS)")
	fmt.Println("  shell_distances:           derived from the structure's own distances")
	fmt.Println("  shell_weights:             1/s for every shell s")
	fmt.Println("  target_objective:          0 (perfectly random neighborhoods)")
}

func readStructure(path string) (resultdoc.StructureRecord, error) {
	var rec resultdoc.StructureRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("reading structure file: %w", err)
	}
	if err := decodeByExtension(path, data, &rec); err != nil {
		return rec, fmt.Errorf("parsing structure file: %w", err)
	}
	return rec, nil
}

func readSettings(path string) (settings.Raw, error) {
	var raw settings.Raw
	if path == "" {
		return raw, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return raw, fmt.Errorf("reading settings file: %w", err)
	}
	if err := decodeByExtension(path, data, &raw); err != nil {
		return raw, fmt.Errorf("parsing settings file: %w", err)
	}
	return raw, nil
}

func decodeByExtension(path string, data []byte, out interface{}) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Unmarshal(data, out)
	default:
		return yaml.Unmarshal(data, out)
	}
}

func defaultOutputPath(structureFile, dumpFormat string) string {
	base := strings.TrimSuffix(structureFile, filepath.Ext(structureFile))
	return fmt.Sprintf("%s.result.%s", base, dumpFormat)
}

func fatalOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`sqs - special quasirandom structure search CLI

Usage:
  sqs <command> [options]

Commands:
  run iteration   Run a search (systematic or random) over a structure
  run analysis    Score one fixed configuration, no search
  params          Show default search parameters
  version         Show version
  help            Show this help message

Examples:

  # Run a random search
  sqs run iteration -structure rocksalt.yaml -settings run.yaml -output result.yaml

  # Run an exhaustive systematic search, dumping objectives too
  sqs run iteration -structure rocksalt.yaml -settings run.yaml -dump-objective

  # Score one configuration directly
  sqs run analysis -structure rocksalt.yaml -configuration Na,Cl,Na,Cl,Na,Cl,Na,Cl

  # Show default parameters
  sqs params
`)
}
