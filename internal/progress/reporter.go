// Package progress reports backfill progress, as a live bar on a
// terminal or as plain lines under CI.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter tracks a fixed number of steps. Step advances by one;
// Done finalizes the output.
type Reporter interface {
	Step(message string)
	Done()
}

// New returns a reporter sized for total steps, picking line output
// when running under CI.
func New(total int) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &lineReporter{total: total}
	}
	return &barReporter{bar: progressbar.NewOptions(total,
		progressbar.OptionSetDescription("backfill"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)}
}

type barReporter struct {
	bar *progressbar.ProgressBar
}

func (r *barReporter) Step(message string) {
	r.bar.Describe(message)
	_ = r.bar.Add(1)
}

func (r *barReporter) Done() {
	_ = r.bar.Finish()
}

type lineReporter struct {
	total int
	done  int
}

func (r *lineReporter) Step(message string) {
	r.done++
	fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", r.done, r.total, message)
}

func (r *lineReporter) Done() {
	fmt.Fprintf(os.Stderr, "backfill finished, %d of %d sources\n", r.done, r.total)
}
