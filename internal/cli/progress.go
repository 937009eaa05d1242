package cli

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/hdlnav/internal/index"
)

// CLIProgressReporter reports include index builds with a progress bar.
type CLIProgressReporter struct {
	quiet     bool
	out       io.Writer
	fileBar   *progressbar.ProgressBar
	startTime time.Time
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet:     quiet,
		out:       out,
		startTime: time.Now(),
	}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	if c.quiet {
		return
	}
	log.Println("Discovering include files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(files int) {
	if c.quiet || files == 0 {
		return
	}
	c.fileBar = progressbar.NewOptions(files,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Indexing include files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnFileIndexed(file string) {
	if c.quiet || c.fileBar == nil {
		return
	}
	c.fileBar.Add(1)
}

func (c *CLIProgressReporter) OnComplete(stats *index.BuildStats) {
	if c.quiet {
		return
	}
	if c.fileBar != nil {
		c.fileBar.Finish()
		c.fileBar = nil
	}

	verb := "complete"
	if stats.Cancelled {
		verb = "cancelled"
	}
	fmt.Fprintf(c.out, "✓ Include index %s: %s names from %s files in %.1fs\n",
		verb, formatNumber(stats.Names), formatNumber(stats.Indexed), stats.Duration.Seconds())
	if stats.Failed > 0 {
		fmt.Fprintf(c.out, "  Skipped: %s files (ctags failed)\n", formatNumber(stats.Failed))
	}
}

// formatNumber formats an integer with thousands separators.
func formatNumber(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if len(s) <= 3 {
		return s
	}
	var out []byte
	pre := len(s) % 3
	if pre > 0 {
		out = append(out, s[:pre]...)
	}
	for i := pre; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
