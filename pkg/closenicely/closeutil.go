// Package closenicely closes resources whose close errors are not actionable.
package closenicely

import (
	"io"

	"go.uber.org/zap"
)

// OrDebug closes closer and logs a failure at debug level.
func OrDebug(closer io.Closer) {
	FuncOrDebug(closer.Close)
}

func FuncOrDebug(closer func() error) {
	if err := closer(); err != nil {
		zap.L().Debug("failed to close", zap.Error(err))
	}
}
