package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// consoleReporter prints flow outcomes for the operator
type consoleReporter struct {
	out   io.Writer
	eol   string
	label *color.Color
	reply *color.Color
	fail  *color.Color
}

func newConsoleReporter(out io.Writer, eol string) *consoleReporter {
	if eol == "" {
		eol = "\n"
	}
	return &consoleReporter{
		out:   out,
		eol:   eol,
		label: color.New(color.FgCyan, color.Bold),
		reply: color.New(color.FgGreen),
		fail:  color.New(color.FgRed, color.Bold),
	}
}

func (r *consoleReporter) Reply(flow, text string) {
	r.label.Fprintf(r.out, "[%s] ", flow)
	r.reply.Fprint(r.out, text)
	fmt.Fprint(r.out, r.eol)
}

func (r *consoleReporter) Failed(flow string, err error) {
	r.label.Fprintf(r.out, "[%s] ", flow)
	r.fail.Fprintf(r.out, "failed: %v", err)
	fmt.Fprint(r.out, r.eol)
}

// Info prints a plain status line
func (r *consoleReporter) Info(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
	fmt.Fprint(r.out, r.eol)
}
