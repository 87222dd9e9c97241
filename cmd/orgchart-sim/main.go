package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/rmax-ai/orgchart/pkg/client"
	"github.com/rmax-ai/orgchart/pkg/logging"
	"github.com/rmax-ai/orgchart/pkg/simulation"
)

func main() {
	var (
		scenarioFile string
		apiURL       string
		jsonOutput   bool
		outputFile   string
		logLevel     string
	)

	flagSet := pflag.NewFlagSet("orgchart-sim", pflag.ExitOnError)
	flagSet.StringVar(&scenarioFile, "scenario", "", "path to scenario YAML file")
	flagSet.StringVar(&apiURL, "api", "http://127.0.0.1:8090", "base URL of orgchart-d")
	flagSet.BoolVar(&jsonOutput, "json", false, "output results as JSON")
	flagSet.StringVar(&outputFile, "out", "", "write output to file instead of stdout")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level")
	_ = flagSet.Parse(os.Args[1:])

	logger, err := logging.New(logLevel, logging.FormatConsole, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orgchart-sim: %v\n", err)
		os.Exit(2)
	}

	scenario := defaultScenario()
	if scenarioFile != "" {
		scenario, err = simulation.LoadScenario(scenarioFile)
		if err != nil {
			logger.Fatal().Err(err).Str("path", scenarioFile).Msg("failed_to_load_scenario")
		}
	} else {
		fmt.Fprintln(os.Stderr, "No scenario file provided, running default demo scenario...")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.NewClient(apiURL, client.WithRetries(2, client.DefaultBackoff()))
	result, err := simulation.RunScenario(ctx, scenario, api, logger)
	if err != nil {
		logger.Error().Err(err).Msg("scenario_aborted")
		os.Exit(1)
	}

	if err := writeReport(result, jsonOutput, outputFile); err != nil {
		logger.Fatal().Err(err).Msg("failed_to_write_report")
	}

	if !result.Success {
		os.Exit(1)
	}
}

func defaultScenario() simulation.Scenario {
	now := time.Now()
	return simulation.Scenario{
		Name:              "Default Demo",
		Description:       "One department with a loose contractor",
		Managers:          1,
		ForemenPerManager: 2,
		WorkersPerForeman: 4,
		LooseWorkers:      1,
		BaseSalary:        simulation.SalaryRange{Min: 2000, Max: 6000},
		HiredFrom:         now.AddDate(-10, 0, 0).Format("2006-01"),
		HiredTo:           now.Format("2006-01"),
		Period:            now.Format("2006-01"),
		Concurrency:       4,
		Sabotage:          5,
	}
}

func writeReport(res simulation.SimulationResult, jsonFmt bool, filePath string) error {
	var output []byte

	if jsonFmt {
		var err error
		output, err = json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
	} else {
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "\n--- Simulation Report: %s (seed %d) ---\n", res.ScenarioName, res.Seed)
		fmt.Fprintf(&buf, "Duration: %s\n", res.Duration)
		fmt.Fprintf(&buf, "Employees: %d | Relations: %d\n", res.Employees, res.Relations)
		fmt.Fprintf(&buf, "Requests: %d | Rejected: %d | Errors: %d\n", res.TotalRequests, res.TotalRejected, res.TotalErrors)
		fmt.Fprintf(&buf, "Payroll %s: %.2f (expected %.2f, %d computable)\n", res.Period, res.PayrollTotal, res.PayrollExpected, res.Computable)
		buf.WriteString("\nInvariants:\n")
		for _, inv := range res.Invariants {
			mark := "PASS"
			if !inv.Passed {
				mark = "FAIL"
			}
			fmt.Fprintf(&buf, "  [%s] %-26s expected %s, got %s\n", mark, inv.Name, inv.Expected, inv.Actual)
		}
		if res.Success {
			buf.WriteString("\nRESULT: SUCCESS\n")
		} else {
			buf.WriteString("\nRESULT: FAILURE\n")
		}
		output = buf.Bytes()
	}

	if filePath != "" {
		return os.WriteFile(filePath, output, 0o644)
	}
	_, err := os.Stdout.Write(output)
	return err
}
