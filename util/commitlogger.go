package util

import "bytes"

// CommitLogger collects writes and hands each completed line to Committer, without the trailing
// newline. It is the io.Writer behind loggers whose output goes somewhere line oriented.
type CommitLogger struct {
	Committer func(p []byte)
	buf       []byte
}

func (l *CommitLogger) Write(p []byte) (n int, err error) {
	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		l.commit(l.buf[:i])
		l.buf = l.buf[i+1:]
	}
	return len(p), nil
}

// Commit hands over any partial line still buffered.
func (l *CommitLogger) Commit() {
	if len(l.buf) > 0 {
		l.commit(l.buf)
	}
	l.Reset()
}

func (l *CommitLogger) commit(line []byte) {
	if l.Committer != nil {
		l.Committer(line)
	}
}

func (l *CommitLogger) Reset() {
	l.buf = l.buf[:0]
}
