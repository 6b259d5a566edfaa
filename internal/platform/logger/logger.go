package logger

import (
	"log"
	"os"
)

// New returns the shared process logger. Every binary line carries the
// pipeline prefix so scheduler output stays attributable.
func New() *log.Logger {
	return log.New(os.Stdout, "ipeds-etl ", log.LstdFlags|log.Lmsgprefix)
}
