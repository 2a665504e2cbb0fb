package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"signbridge/internal/playback"
	"signbridge/internal/status"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiDim    = "\x1b[2m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	return paint(base, statusKindColor(kind), colorize)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func kindFromStatus(kind status.Kind) statusKind {
	switch kind {
	case status.KindSuccess:
		return statusOK
	case status.KindError:
		return statusError
	default:
		return statusInfo
	}
}

func paint(text, color string, colorize bool) string {
	if !colorize || color == "" {
		return text
	}
	return color + text + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// terminal is the line-oriented render surface for interactive commands.
// Writes are serialized because sinks fire from several goroutines.
type terminal struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
}

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out, colorize: shouldColorize(out)}
}

func (t *terminal) println(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, line)
}

// Status prints visible messages. Expiry and dismissal clear nothing on a
// scrolling terminal, so they are skipped.
func (t *terminal) Status(msg status.Message) {
	if !msg.Visible() {
		return
	}
	kind := kindFromStatus(msg.Kind)
	t.println(paint(fmt.Sprintf("[%s] %s", statusKindLabel(kind), msg.Text), statusKindColor(kind), t.colorize))
}

func (t *terminal) Transcript(words []string) {
	text := strings.Join(words, " ")
	if text == "" {
		text = "(empty)"
	}
	t.println(paint("Transcript: ", ansiDim, t.colorize) + text)
}

func (t *terminal) Playback(snap playback.Snapshot) {
	switch snap.State {
	case playback.Playing.String():
		if snap.Current == "" {
			return
		}
		t.println(paint(fmt.Sprintf("Playing %d/%d: ", snap.Cursor, snap.Length), ansiDim, t.colorize) + snap.Current)
	case playback.Complete.String():
		if snap.ReplayAvailable {
			t.println(paint("Type /replay to play the sequence again.", ansiDim, t.colorize))
		}
	}
}

func (t *terminal) Dictation(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	t.println(paint("Heard: ", ansiDim, t.colorize) + text)
}

// renderTable draws rows under headers in a rounded box. Column indexes in
// rightAligned are right-aligned; headers are printed as written.
func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	if len(headers) == 0 {
		return ""
	}
	style := table.StyleRounded
	style.Format.Header = text.FormatDefault

	tw := table.NewWriter()
	tw.SetStyle(style)
	tw.AppendHeader(tableRow(headers, len(headers)))
	for _, cells := range rows {
		tw.AppendRow(tableRow(cells, len(headers)))
	}
	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, col := range rightAligned {
		configs = append(configs, table.ColumnConfig{Number: col + 1, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// tableRow pads or truncates cells to width.
func tableRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := 0; i < width && i < len(cells); i++ {
		row[i] = cells[i]
	}
	return row
}
