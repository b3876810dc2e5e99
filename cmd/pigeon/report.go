package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/harshada2576/pigeon-finder/internal/action"
	"github.com/harshada2576/pigeon-finder/internal/dupes"
	"github.com/harshada2576/pigeon-finder/internal/progress"
)

// consoleProgress redraws a single status line on w.
type consoleProgress struct {
	w io.Writer

	mu      sync.Mutex
	label   string
	total   int
	start   time.Time
	printed bool
}

func newConsoleProgress(w io.Writer) *consoleProgress {
	return &consoleProgress{w: w}
}

func (p *consoleProgress) OnProgress(done, total int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	label := message
	if i := strings.Index(message, ":"); i > 0 {
		label = message[:i]
	}
	if total == 0 {
		label = "scanning"
	}
	if label != p.label || total != p.total {
		p.label, p.total, p.start = label, total, time.Now()
	}

	if total > 0 {
		fmt.Fprintf(p.w, "\r\033[K%s %d/%d  ETA %s", label, done, total,
			progress.FormatETA(done, total, time.Since(p.start)))
	} else {
		fmt.Fprintf(p.w, "\r\033[K%s %d files", label, done)
	}
	p.printed = true
}

// End terminates the status line if anything was drawn.
func (p *consoleProgress) End() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.printed {
		fmt.Fprintln(p.w)
		p.printed = false
	}
}

var (
	keepColor  = color.New(color.FgGreen)
	dupColor   = color.New(color.FgRed)
	headColor  = color.New(color.FgCyan, color.Bold)
	warnColor  = color.New(color.FgYellow)
	faintColor = color.New(color.Faint)
)

// printSet shows one set with its original marked.
func printSet(w io.Writer, i int, set dupes.DuplicateSet, original string) {
	headColor.Fprintf(w, "Set %d: %d files, %s each, %s reclaimable\n",
		i+1, set.Len(), humanize.IBytes(uint64(set.Size)), humanize.IBytes(uint64(set.WastedBytes())))
	faintColor.Fprintf(w, "  digest %s\n", set.Digest)
	for _, f := range set.Files {
		stamp := "unknown"
		if !f.ModTime.IsZero() {
			stamp = f.ModTime.Format("2006-01-02 15:04:05")
		}
		if f.Path == original {
			keepColor.Fprintf(w, "  keep  %s  (%s)\n", f.Path, stamp)
		} else {
			dupColor.Fprintf(w, "  dup   %s  (%s)\n", f.Path, stamp)
		}
	}
}

func printOutcomes(w io.Writer, res *action.Result) {
	for _, o := range res.Outcomes {
		switch {
		case o.Err != nil:
			warnColor.Fprintf(w, "  failed %s: %v\n", o.Path, o.Err)
		case res.Action == action.Delete:
			fmt.Fprintf(w, "  deleted %s\n", o.Path)
		case res.Action == action.Move:
			fmt.Fprintf(w, "  moved %s -> %s\n", o.Path, o.Destination)
		}
	}
}

func printWarnings(w io.Writer, title string, errs []error) {
	if len(errs) == 0 {
		return
	}
	warnColor.Fprintf(w, "%s (%d):\n", title, len(errs))
	for _, err := range errs {
		warnColor.Fprintf(w, "  %v\n", err)
	}
}

func printSummary(w io.Writer, sum dupes.Summary) {
	if sum.Sets == 0 {
		keepColor.Fprintln(w, "No duplicates found")
		return
	}
	headColor.Fprintf(w, "%s in %d sets, %s reclaimable\n",
		plural(sum.DuplicateFiles, "duplicate file"), sum.Sets, humanize.IBytes(uint64(sum.WastedBytes)))
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
