package progress

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

const barWidth = 30

// Console prints the visible log and a progress bar to a terminal.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	colorize bool
}

// NewConsole writes to w, colorizing only when w is a terminal.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, colorize: shouldColorize(w)}
}

// Entry implements Presenter.
func (c *Console) Entry(e Entry) {
	line := e.String()
	if c.colorize && e.Severity == SeverityError {
		line = text.FgRed.Sprint(line)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

// Progress implements Presenter.
func (c *Console) Progress(s Snapshot, percent float64) {
	filled := int(percent / percentMultiplier * barWidth)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
	if c.colorize {
		bar = text.FgGreen.Sprint(bar)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "[%s] %5.1f%% %s\n", bar, percent, s.Status())
}

// BatchStat summarizes one batch for the final table.
type BatchStat struct {
	Index    int
	First    int
	Last     int
	Rendered int
	Accepted int
	Skipped  bool
	Err      error
}

// Outcome is a one-word description of the batch result.
func (b BatchStat) Outcome() string {
	switch {
	case b.Err != nil:
		return "failed"
	case b.Skipped:
		return "skipped"
	default:
		return "uploaded"
	}
}

// RenderTable formats per-batch results as a rounded table.
func RenderTable(stats []BatchStat) string {
	if len(stats) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Batch", "Records", "Rendered", "Accepted", "Result"})
	for _, b := range stats {
		tw.AppendRow(table.Row{
			b.Index,
			strconv.Itoa(b.First) + "-" + strconv.Itoa(b.Last),
			b.Rendered,
			b.Accepted,
			b.Outcome(),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return tw.Render()
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
