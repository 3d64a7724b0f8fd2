package databuf

import (
	"github.com/greedchase/daqbuf/stlog"
)

var sysLog = newSysLog()

func newSysLog() *stlog.Logger {
	l := stlog.NewLogger()
	l.SetTermLevel(stlog.WARNING)
	return l
}

// SetLogger routes databuf's own diagnostics to l. Call it before any
// buffer is created or attached.
func SetLogger(l *stlog.Logger) {
	sysLog = l
}
