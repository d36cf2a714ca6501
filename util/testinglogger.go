package util

import (
	"log"
	"testing"
)

// NewTestingLogger returns a logger whose lines go to tb.Log, so they only show for failing or
// verbose tests.
func NewTestingLogger(tb testing.TB) *log.Logger {
	w := &CommitLogger{
		Committer: func(p []byte) {
			tb.Log(string(p))
		},
	}
	return log.New(w, "", 0)
}
