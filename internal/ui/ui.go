// Package ui renders the terminal surface: startup banner, run
// configuration table, live progress bar, per-hit lines, and the
// final summary table. Quiet mode suppresses everything except the
// summary.
package ui

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/pulsenet/pulsenet/internal/report"
)

var (
	hitColor    = color.New(color.FgGreen, color.Bold)
	labelColor  = color.New(color.FgCyan)
	bannerColor = color.New(color.FgMagenta, color.Bold)
)

// Terminal renders run output to stdout. It implements report.UI.
type Terminal struct {
	quiet bool
	bar   *pb.ProgressBar
}

// New creates a terminal renderer. With quiet set, only the final
// summary is shown.
func New(quiet bool) *Terminal {
	return &Terminal{quiet: quiet}
}

// Banner prints the startup header.
func (t *Terminal) Banner(version string) {
	if t.quiet {
		return
	}
	bannerColor.Println("PulseNet")
	labelColor.Printf("IPv4 reachability prober %s\n\n", version)
}

// ConfigRow is one line of the run configuration table.
type ConfigRow struct {
	Setting string
	Value   string
}

// ShowConfig prints the effective run settings before probing starts.
func (t *Terminal) ShowConfig(rows []ConfigRow) {
	if t.quiet {
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Setting", "Value")
	for _, row := range rows {
		_ = table.Append([]string{row.Setting, row.Value})
	}
	_ = table.Render()
	fmt.Println()
}

// StartProgress begins the progress bar for total addresses.
func (t *Terminal) StartProgress(total int) {
	if t.quiet {
		return
	}
	t.bar = pb.New(total)
	t.bar.SetWriter(os.Stdout)
	t.bar.Start()
}

// Tick advances the progress bar by one completed probe.
func (t *Terminal) Tick() {
	if t.bar != nil {
		t.bar.Increment()
	}
}

// FinishProgress stops the progress bar.
func (t *Terminal) FinishProgress() {
	if t.bar != nil {
		t.bar.Finish()
		t.bar = nil
	}
}

// Hit prints one live hit line. Misses are never shown.
func (t *Terminal) Hit(event report.HitEvent) {
	if t.quiet {
		return
	}
	hitColor.Printf("[+] %s:%d reachable (%dms)\n",
		event.Addr.String(), event.Port, event.Latency.Milliseconds())
}

// Summary prints the final stats table. It is shown even in quiet
// mode, as the run's single piece of mandatory output.
func (t *Terminal) Summary(stats report.RunStats, elapsed time.Duration) {
	t.FinishProgress()

	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")
	_ = table.Append([]string{"Addresses probed", strconv.FormatUint(stats.Total, 10)})
	_ = table.Append([]string{"Reachable", strconv.FormatUint(stats.Hits, 10)})
	_ = table.Append([]string{"Timeouts", strconv.FormatUint(stats.Timeouts, 10)})
	_ = table.Append([]string{"Refused", strconv.FormatUint(stats.Refused, 10)})
	_ = table.Append([]string{"Unreachable", strconv.FormatUint(stats.Unreachable, 10)})
	_ = table.Append([]string{"Mean latency", fmt.Sprintf("%dms", stats.MeanLatency().Milliseconds())})
	_ = table.Append([]string{"Elapsed", elapsed.Round(time.Millisecond).String()})
	_ = table.Render()
}
