package scheduler

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/feral-file/ff-claims-checker/internal/logger"
)

// cronLogger routes cron's internal logging to the global zap logger
type cronLogger struct{}

func newCronLogger() cron.Logger {
	return cronLogger{}
}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Default().Sugar().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Default().Sugar().Errorw(msg, append(keysAndValues, zap.Error(err))...)
}
