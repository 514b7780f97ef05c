package util

import (
	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"
)

// ConfigureLogging installs an unbuffered stderr backend. Verbosity follows commonlog:
// 0 notices, 1 info, 2 and above debug, negative values fewer messages.
func ConfigureLogging(verbosity int) {
	backend := simple.NewBackend()
	backend.Buffered = false
	backend.Configure(verbosity, nil)
	commonlog.SetBackend(backend)
}

// Logger returns the logger for one of swindle's packages.
func Logger(pkg string) commonlog.Logger {
	return commonlog.GetLogger("swindle." + pkg)
}
