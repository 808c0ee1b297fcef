// Copyright 2026 The evm-data-collector Authors
// This file is part of the evm-data-collector library.
//
// The evm-data-collector library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The evm-data-collector library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the evm-data-collector library. If not, see <http://www.gnu.org/licenses/>.

// Package log provides per-module sugared loggers for the collector.
package log

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	root *zap.Logger
	once sync.Once
)

// NewModuleLogger returns a named logger for the given module. All module
// loggers share one zap core writing key-value pairs to stderr; the level is
// taken from the LOG_LEVEL environment variable and defaults to info.
func NewModuleLogger(module string) *zap.SugaredLogger {
	once.Do(func() {
		level := zapcore.InfoLevel
		if v := os.Getenv("LOG_LEVEL"); v != "" {
			if parsed, err := zapcore.ParseLevel(strings.ToLower(v)); err == nil {
				level = parsed
			}
		}

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			level,
		)
		root = zap.New(core)
	})

	return root.Named(module).Sugar()
}
