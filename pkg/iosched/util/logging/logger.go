/*
Copyright 2025 The iosched Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package logging

import (
	"context"
	"os"

	"github.com/go-logr/logr"
	uberzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// level backs every logger built by InitSetupLogging. ctrl.SetLogger can only be fulfilled once, so later
// verbosity changes go through level instead of a new logger.
var level = uberzap.NewAtomicLevelAt(zapcore.InfoLevel)

// InitSetupLogging installs the process-wide controller-runtime logger. Call it before flags are parsed.
func InitSetupLogging() {
	ctrl.SetLogger(zap.New(zap.Level(level), zap.RawZapOpts(uberzap.AddCaller())))
}

// InitLogging applies the parsed flags. An explicit --zap-log-level wins over the logr verbosity.
func InitLogging(opts *zap.Options, verbosity int) {
	if opts != nil && opts.Level != nil {
		if enabler, ok := opts.Level.(interface{ Level() zapcore.Level }); ok {
			level.SetLevel(enabler.Level())
			return
		}
		if lvl, ok := opts.Level.(zapcore.Level); ok {
			level.SetLevel(lvl)
			return
		}
	}
	SetVerbosity(verbosity)
}

// SetVerbosity maps a logr verbosity (DEFAULT..TRACE) onto the shared zap level.
func SetVerbosity(v int) {
	level.SetLevel(zapcore.Level(-v))
}

// CurrentLevel returns the shared zap level.
func CurrentLevel() zapcore.Level {
	return level.Level()
}

// NewTestLogger returns a development logger that prints everything up to TRACE.
func NewTestLogger() logr.Logger {
	return zap.New(
		zap.UseDevMode(true),
		zap.Level(zapcore.Level(-TRACE)),
		zap.RawZapOpts(uberzap.AddCaller()),
	)
}

// NewTestLoggerIntoContext stores a NewTestLogger in ctx.
func NewTestLoggerIntoContext(ctx context.Context) context.Context {
	return log.IntoContext(ctx, NewTestLogger())
}

// Fatal logs err and exits the process. Only for use in main packages.
func Fatal(logger logr.Logger, err error, msg string, keysAndValues ...any) {
	logger.Error(err, msg, keysAndValues...)
	os.Exit(1)
}
