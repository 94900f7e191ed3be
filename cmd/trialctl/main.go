// trialctl runs one-shot matching and extraction commands against the same
// configuration the server uses.
//
//	trialctl match-patient -id P001
//	trialctl match-trial -id egfr -all
//	trialctl extract -file protocol.txt
//	trialctl interpret -file protocol.txt
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/amikxn/TrialMatchAI/internal/config"
	"github.com/amikxn/TrialMatchAI/internal/domain"
	"github.com/amikxn/TrialMatchAI/internal/service"
	"github.com/amikxn/TrialMatchAI/internal/store"
	"github.com/amikxn/TrialMatchAI/pkg/interpret"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	configManager, err := config.NewManager()
	if err != nil {
		fatal("failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		fatal("configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	// Command output goes to stdout; keep log noise on stderr
	logger := config.NewLogger(cfg.Logging)
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "match-patient":
		runMatchPatient(cfg.Store, logger, args)
	case "match-trial":
		runMatchTrial(cfg.Store, logger, args)
	case "extract":
		runExtract(logger, args)
	case "interpret":
		runInterpret(cfg.Interpreter, logger, args)
	default:
		usage()
		os.Exit(2)
	}
}

func runMatchPatient(storeCfg domain.StoreConfig, logger *logrus.Logger, args []string) {
	fs := flag.NewFlagSet("match-patient", flag.ExitOnError)
	id := fs.String("id", "", "patient ID to evaluate")
	fs.Parse(args)
	if *id == "" {
		fatal("match-patient: -id is required")
	}

	records := openStore(storeCfg, logger)
	patient, ok := records.Patient(*id)
	if !ok {
		fatal("patient '%s' is not in the roster", *id)
	}

	matcher := service.NewMatcherService(logger)
	printJSON(matcher.MatchPatientAcrossTrials(patient, records.Trials()))
}

func runMatchTrial(storeCfg domain.StoreConfig, logger *logrus.Logger, args []string) {
	fs := flag.NewFlagSet("match-trial", flag.ExitOnError)
	id := fs.String("id", "", "trial ID to evaluate")
	all := fs.Bool("all", false, "include non-matching patients with reasons")
	fs.Parse(args)
	if *id == "" {
		fatal("match-trial: -id is required")
	}

	records := openStore(storeCfg, logger)
	trial, err := records.Trial(*id)
	if err != nil {
		fatal("%v", err)
	}

	matcher := service.NewMatcherService(logger)
	printJSON(matcher.MatchTrialAcrossPatients(trial, records.Patients(), !*all))
}

func runExtract(logger *logrus.Logger, args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	file := fs.String("file", "-", "protocol text file (- for stdin)")
	fs.Parse(args)

	extractor := service.NewExtractorService(logger, service.ExtractorConfig{})
	printJSON(extractor.Extract(readInput(*file)))
}

func runInterpret(interpreterCfg domain.InterpreterConfig, logger *logrus.Logger, args []string) {
	fs := flag.NewFlagSet("interpret", flag.ExitOnError)
	file := fs.String("file", "-", "protocol text file (- for stdin)")
	fs.Parse(args)

	client := interpret.NewClient(interpreterCfg)
	svc := service.NewInterpreterService(logger, client)
	printJSON(svc.Extract(context.Background(), readInput(*file)))
}

func openStore(storeCfg domain.StoreConfig, logger *logrus.Logger) *store.FileStore {
	records, err := store.NewFileStore(storeCfg, logger)
	if err != nil {
		fatal("failed to load record store: %v", err)
	}
	return records
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: trialctl <match-patient|match-trial|extract|interpret> [flags]")
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printJSON(v interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fatal("encoding output: %v", err)
	}
}

func readInput(path string) string {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatal("reading stdin: %v", err)
		}
		return string(data)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("reading %s: %v", path, err)
	}
	return string(data)
}
