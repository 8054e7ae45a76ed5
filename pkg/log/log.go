// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/go-logr/logr"
	"k8s.io/klog/v2/textlogger"
	ctrl "sigs.k8s.io/controller-runtime"
)

// FromContextOrDefault returns a Logger from ctx. If no Logger is found, this
// returns the default controller-runtime logger so we at least don't
// accidentally discard logs. Prefer using this over
// logr.FromContextOrDiscard().
func FromContextOrDefault(ctx context.Context) logr.Logger {
	if logger, err := logr.FromContext(ctx); err == nil {
		return logger
	}
	if logger := defaultLogger.Load(); logger != nil {
		return *logger
	}
	return ctrl.Log.WithName("DEFAULT")
}

// NewLogger returns a klog text logger that writes to w at the given
// verbosity.
func NewLogger(w io.Writer, verbosity int) logr.Logger {
	return textlogger.NewLogger(textlogger.NewConfig(
		textlogger.Verbosity(verbosity),
		textlogger.Output(w)))
}

var defaultLogger atomic.Pointer[logr.Logger]

// SetDefault makes logger the one returned by FromContextOrDefault when a
// context carries none. controller-runtime only honors its first SetLogger
// call, so later calls replace the default here only.
func SetDefault(logger logr.Logger) {
	defaultLogger.Store(&logger)
	ctrl.SetLogger(logger)
}

// Warn logs msg as a warning. logr has no warning level, so the entry is
// written at V(0) with level=warning.
func Warn(logger logr.Logger, msg string, keysAndValues ...any) {
	logger.Info(msg, append([]any{"level", "warning"}, keysAndValues...)...)
}
