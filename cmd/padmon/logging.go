package main

import (
	"io"
	"os"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ardnew/dwc2usb/pkg"
)

// LogOptions configures the host stack's logger.
type LogOptions struct {
	Level      string `help:"Minimum log level" enum:"trace,debug,info,warn,error" default:"info"`
	Format     string `help:"Log format; auto picks text on a terminal and JSON otherwise" enum:"auto,text,json" default:"auto"`
	File       string `help:"Write logs to a rotated file instead of stderr" type:"path"`
	MaxSize    int    `help:"Rotate the log file after this many megabytes" default:"10"`
	MaxBackups int    `help:"Rotated log files to keep" default:"3"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs the logger described by o. Logs go to stderr unless a
// file is named. The returned closer releases the file.
func (o LogOptions) Setup(stderr *os.File) io.Closer {
	pkg.SetLogLevel(pkg.ParseLevel(o.Level))

	var (
		w      io.Writer = stderr
		closer io.Closer = nopCloser{}
	)
	if o.File != "" {
		lj := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSize,
			MaxBackups: o.MaxBackups,
		}
		w, closer = lj, lj
	}
	pkg.SetLogOutput(w, o.format(w))
	return closer
}

// format resolves the configured format for w.
func (o LogOptions) format(w io.Writer) pkg.LogFormat {
	switch o.Format {
	case "text":
		return pkg.LogFormatText
	case "json":
		return pkg.LogFormatJSON
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return pkg.LogFormatText
	}
	return pkg.LogFormatJSON
}
