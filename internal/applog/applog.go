// Package applog wires up the ambient application logger: debug/event
// traces for the engine and CLI, distinct from the per-step raw output
// captured by internal/logstore. Grounded on the teacher's root.go
// charmbracelet/log styling, generalized into a reusable setup function.
package applog

import (
	"github.com/charmbracelet/log"
)

// Level mirrors the CLI's -v/-vv verbosity flag.
type Level int

const (
	Quiet Level = iota
	Verbose
	Debug
)

// Init configures the process-wide charmbracelet/log logger the way
// the teacher's root.go does: timestamps on, a fixed-width ERROR style,
// and a level derived from CLI verbosity.
func Init(lvl Level) {
	log.SetReportTimestamp(true)
	log.SetTimeFormat("15:04:05 01/02/2006")
	styles := log.DefaultStyles()
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].SetString("ERROR").MaxWidth(5)
	log.SetStyles(styles)

	switch lvl {
	case Debug:
		log.SetLevel(log.DebugLevel)
	case Verbose:
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
}
