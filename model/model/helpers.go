package model

import (
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

const slowExecutionThreshold = 2 * time.Second

// LogOnSlowExecutionWithParams logs the calling method with its query
// params when execution crossed the slow threshold. Use as
// defer LogOnSlowExecutionWithParams(time.Now(), &logFields).
func LogOnSlowExecutionWithParams(startTime time.Time, params *log.Fields) {
	elapsed := time.Since(startTime)
	if elapsed < slowExecutionThreshold {
		return
	}

	caller := "unknown"
	if pc, _, _, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	logCtx := log.WithField("method", caller).WithField("duration_ms", elapsed.Milliseconds())
	if params != nil {
		logCtx = logCtx.WithFields(*params)
	}
	logCtx.Warn("Slow execution of query.")
}
