package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/rmax-ai/orgchart/pkg/client"
	"github.com/rmax-ai/orgchart/pkg/employee"
)

func main() {
	flagSet := pflag.NewFlagSet("orgchart-tui", pflag.ContinueOnError)
	endpoint := flagSet.String("endpoint", "http://127.0.0.1:8090", "daemon URL")
	interval := flagSet.Duration("interval", time.Second, "poll interval")
	rawPeriod := flagSet.String("period", "", "initial month YYYY-MM (default: current month)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	period := employee.PeriodOf(time.Now())
	if *rawPeriod != "" {
		p, err := employee.ParsePeriod(*rawPeriod)
		if err != nil {
			fmt.Fprintf(os.Stderr, "orgchart-tui: %v\n", err)
			os.Exit(2)
		}
		period = p
	}

	api := client.NewClient(*endpoint, client.WithHTTPClient(&http.Client{Timeout: 500 * time.Millisecond}))
	p := tea.NewProgram(initialModel(api, *interval, period), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
