package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"agriref/internal/preflight"
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
)

const (
	statusLabelWidth = 22
	statusIndent     = "  "
)

var statusStyles = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func (k statusKind) label() string {
	if style, ok := statusStyles[k]; ok {
		return style.label
	}
	return statusStyles[statusInfo].label
}

func (k statusKind) paint(s string, colorize bool) string {
	style, ok := statusStyles[k]
	if !colorize || !ok {
		return s
	}
	return style.color + s + ansiReset
}

// statusPrinter collects status lines for one writer.
type statusPrinter struct {
	colorize bool
	lines    []string
}

func newStatusPrinter(w io.Writer) *statusPrinter {
	return &statusPrinter{colorize: shouldColorize(w)}
}

func (p *statusPrinter) section(title string) {
	if len(p.lines) > 0 {
		p.lines = append(p.lines, "")
	}
	p.lines = append(p.lines, renderSectionHeader(title, p.colorize)...)
}

func (p *statusPrinter) line(label string, kind statusKind, message string) {
	p.lines = append(p.lines, renderStatusLine(label, kind, message, p.colorize))
}

func (p *statusPrinter) result(r preflight.Result, failKind statusKind) {
	p.lines = append(p.lines, resultStatusLine(r, failKind, p.colorize))
}

func (p *statusPrinter) flush(w io.Writer) {
	for _, line := range p.lines {
		fmt.Fprintln(w, line)
	}
	p.lines = nil
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	status := "[" + kind.label() + "]"
	if message != "" {
		status += " " + message
	}
	return kind.paint(fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", status), colorize)
}

// resultStatusLine renders a preflight result; failures use failKind.
func resultStatusLine(r preflight.Result, failKind statusKind, colorize bool) string {
	kind := failKind
	if r.Passed {
		kind = statusOK
	}
	return renderStatusLine(r.Name, kind, r.Detail, colorize)
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	return []string{statusInfo.paint(line, colorize), statusInfo.paint(rule, colorize)}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
