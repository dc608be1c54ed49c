package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/RyanBlaney/vowelspace/internal/app"
	"github.com/RyanBlaney/vowelspace/internal/report"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sys/unix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Terminal colors. Cleared by setColors when output is not a colour terminal.
var (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorBold   = "\033[1m"
)

var titleCaser = cases.Title(language.English)

func setColors(enabled bool) {
	if enabled {
		return
	}
	ColorReset, ColorRed, ColorGreen, ColorYellow = "", "", "", ""
	ColorBlue, ColorPurple, ColorCyan, ColorWhite, ColorBold = "", "", "", "", ""
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// newApp builds the application from the global flags and any command
// specific overrides. Colors are only used on a terminal.
func newApp(overrides ...func(*app.Context)) (*app.App, error) {
	ctx := &app.Context{
		ConfigFile:   runConfigFile,
		OutputFile:   outputFile,
		OutputFormat: outputFormat,
		Verbose:      verbose,
		Quiet:        quiet,
		NoColor:      noColor,
	}
	for _, o := range overrides {
		o(ctx)
	}

	a, err := app.NewApp(ctx)
	if err != nil {
		return nil, err
	}
	setColors(a.Config().Output.Colors && isTerminal(os.Stdout))
	return a, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
}

// tableOptions returns the table rendering options for a.
func tableOptions(a *app.App, title string) report.Options {
	return report.Options{
		Colors: a.Config().Output.Colors && isTerminal(os.Stdout),
		Title:  title,
	}
}

// newProgressBar returns a bar over n items on stderr, or nil when progress
// is disabled or stderr is not a terminal.
func newProgressBar(a *app.App, n int, description string) *progressbar.ProgressBar {
	if !a.Config().Output.Progress || a.Structured() || !isTerminal(os.Stderr) {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func formatCount(n int) string {
	return humanize.Comma(int64(n))
}

func humanLabel(s string) string {
	return titleCaser.String(strings.ReplaceAll(s, "_", " "))
}

func printHeader(title, subject string) {
	fmt.Printf("%s%s%s%s: %s%s%s\n", ColorBold, ColorBlue, title, ColorReset, ColorCyan, subject, ColorReset)
	fmt.Printf("%s%s%s\n\n", ColorBlue, strings.Repeat("═", 80), ColorReset)
}

func printStep(num int, title string) {
	fmt.Printf("%s%s%d%s %s%s%s\n", ColorBold, ColorPurple, num, ColorReset, ColorWhite, title, ColorReset)
}

func printSectionHeader(title string) {
	fmt.Printf("%s%s%s%s\n", ColorBold, ColorBlue, title, ColorReset)
}

func printSuccess(format string, args ...any) {
	fmt.Printf("   %s✓%s %s\n", ColorGreen, ColorReset, fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Printf("   %s⚠%s %s\n", ColorYellow, ColorReset, fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Printf("   %s✗%s %s\n", ColorRed, ColorReset, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("   %s•%s %s\n", ColorCyan, ColorReset, fmt.Sprintf(format, args...))
}

func printResult(name string, success bool) {
	if success {
		fmt.Printf("%-20s %s✓ PASS%s\n", name+":", ColorGreen, ColorReset)
	} else {
		fmt.Printf("%-20s %s✗ FAIL%s\n", name+":", ColorRed, ColorReset)
	}
}

func printKeyValue(key, value string) {
	if value == "" {
		fmt.Printf("%-35s\n", key)
	} else {
		fmt.Printf("%-35s %s\n", key+":", value)
	}
}

// PerformanceTimer records named event durations of a command run.
type PerformanceTimer struct {
	mu     sync.Mutex
	start  time.Time
	open   map[string]time.Time
	events map[string]time.Duration
	order  []string
}

// NewPerformanceTimer starts a timer.
func NewPerformanceTimer() *PerformanceTimer {
	return &PerformanceTimer{
		start:  time.Now(),
		open:   make(map[string]time.Time),
		events: make(map[string]time.Duration),
	}
}

func (pt *PerformanceTimer) StartEvent(name string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.open[name] = time.Now()
}

func (pt *PerformanceTimer) EndEvent(name string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	started, ok := pt.open[name]
	if !ok {
		return
	}
	delete(pt.open, name)
	if _, seen := pt.events[name]; !seen {
		pt.order = append(pt.order, name)
	}
	pt.events[name] += time.Since(started)
}

// GetDuration returns the recorded duration of an ended event.
func (pt *PerformanceTimer) GetDuration(name string) time.Duration {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.events[name]
}

// Events returns the ended events in the order they first ended.
func (pt *PerformanceTimer) Events() []string {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return append([]string(nil), pt.order...)
}

func (pt *PerformanceTimer) GetTotalDuration() time.Duration {
	return time.Since(pt.start)
}

func displayPerformanceSummary(timer *PerformanceTimer) {
	printSectionHeader("Performance Breakdown")
	for _, event := range timer.Events() {
		printInfo("%s: %v", humanLabel(event), timer.GetDuration(event).Round(time.Millisecond))
	}
	fmt.Printf("\n%sTotal Duration: %v%s\n", ColorBold, timer.GetTotalDuration().Round(time.Millisecond), ColorReset)
}
