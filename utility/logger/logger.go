package logger

import (
	"fmt"
	"runtime"

	log "github.com/jeanphorn/log4go"
)

// Info log information
func Info(arg0 interface{}, args ...interface{}) {
	l := log.NewDefaultLogger(log.DEBUG)
	l.Log(log.INFO, getSource(), fmt.Sprintf(arg0.(string), args...))
}

// Debug log debug
func Debug(arg0 interface{}, args ...interface{}) {
	l := log.NewDefaultLogger(log.DEBUG)
	l.Log(log.DEBUG, getSource(), fmt.Sprintf(arg0.(string), args...))
}

// Warning log warnings
func Warning(arg0 interface{}, args ...interface{}) {
	l := log.NewDefaultLogger(log.DEBUG)
	l.Log(log.WARNING, getSource(), fmt.Sprintf(arg0.(string), args...))
}

// Error log errors
func Error(arg0 interface{}, args ...interface{}) {
	l := log.NewDefaultLogger(log.DEBUG)
	l.Log(log.ERROR, getSource(), fmt.Sprintf(arg0.(string), args...))
}

func getSource() (source string) {
	if pc, _, line, ok := runtime.Caller(2); ok {
		source = fmt.Sprintf("%s:%d", runtime.FuncForPC(pc).Name(), line)
	}
	return
}
