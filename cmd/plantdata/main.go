package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/guesstheplant/quiz-engine/internal/catalog"
	"github.com/guesstheplant/quiz-engine/internal/importer"
	"github.com/guesstheplant/quiz-engine/internal/models"
)

const usage = `plantdata — plant catalog data tooling

Usage:
  plantdata <command> [flags]

Commands:
  validate   check a nested plant catalog for structural and
             referential problems (fails on the first one)
  normalize  rewrite a nested plant catalog in canonical form
  to-csv     convert a legacy tabular export to CSV
  to-json    convert a CSV table back to the catalog bundle

Flags:
  --input   path to the input file (required)
  --output  path to write the result (default: stdout)
  --write   rewrite the input file in place (normalize only)
  --help    show this help
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "--help" || command == "-h" || command == "help" {
		fmt.Print(usage)
		return
	}

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	input := fs.String("input", "", "path to the input file")
	output := fs.String("output", "", "path to write the result")
	write := fs.Bool("write", false, "rewrite the input file in place")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	fs.Parse(os.Args[2:])

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *input == "" {
		fatal("--input is required")
	}

	raw, err := os.ReadFile(*input)
	if err != nil {
		fatal("failed to read %s: %v", *input, err)
	}

	switch command {
	case "validate":
		runValidate(raw)
	case "normalize":
		runNormalize(raw, *input, *output, *write)
	case "to-csv":
		runToCSV(raw, *output)
	case "to-json":
		runToJSON(raw, *output)
	default:
		fatal("unknown command %q", command)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "plantdata: "+format+"\n", args...)
	os.Exit(1)
}

func decodeDocument(raw []byte) *catalog.PlantDataDocument {
	var doc catalog.PlantDataDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		fatal("failed to parse catalog: %v", err)
	}
	return &doc
}

func runValidate(raw []byte) {
	normalizer := &catalog.Normalizer{Mode: catalog.ModeStrict}
	data, err := normalizer.Normalize(decodeDocument(raw))
	if err != nil {
		fatal("%v", err)
	}

	_, _, _, difficulties := data.Derived()
	if err := catalog.ValidateReferences(data, difficulties); err != nil {
		fatal("%v", err)
	}

	fmt.Printf("OK: %d plants, %d images\n", data.Stats.PlantCount, data.Stats.ImageCount)
	for _, d := range models.DifficultyOrder {
		fmt.Printf("  %s: %d\n", d, data.Stats.DifficultyCounts[d])
	}
}

func runNormalize(raw []byte, input, output string, write bool) {
	normalizer := &catalog.Normalizer{Mode: catalog.ModeStrict}
	data, err := normalizer.Normalize(decodeDocument(raw))
	if err != nil {
		fatal("%v", err)
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fatal("failed to encode catalog: %v", err)
	}
	encoded = append(encoded, '\n')

	switch {
	case write:
		writeFile(input, encoded)
	case output != "":
		writeFile(output, encoded)
	default:
		os.Stdout.Write(encoded)
	}
}

func runToCSV(raw []byte, output string) {
	bundle, stats, err := importer.NormalizeLegacyRows(raw, importer.Options{})
	if err != nil {
		fatal("%v", err)
	}

	slog.Info("converted legacy table",
		"plants", stats.PlantCount,
		"images", stats.ImageCount,
		"questions", stats.QuestionCount,
	)

	text := importer.ToCSV(bundle)
	if output != "" {
		writeFile(output, []byte(text))
		return
	}
	os.Stdout.WriteString(text)
}

func runToJSON(raw []byte, output string) {
	bundle, stats, err := importer.FromCSV(string(raw))
	if err != nil {
		fatal("%v", err)
	}

	slog.Info("converted csv table",
		"plants", stats.PlantCount,
		"images", stats.ImageCount,
		"questions", stats.QuestionCount,
	)

	encoded, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		fatal("failed to encode bundle: %v", err)
	}
	encoded = append(encoded, '\n')

	if output != "" {
		writeFile(output, encoded)
		return
	}
	os.Stdout.Write(encoded)
}

func writeFile(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fatal("failed to write %s: %v", path, err)
	}
}
