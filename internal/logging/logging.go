/*
Copyright (C) 2026  The kvshard Authors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package logging is a thin, level-prefixed wrapper around the standard
// library's log.Logger: plain lines to stdout/stderr, no structured
// fields, no external framework.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Level selects which prefixed lines a Logger emits.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Logger prints level-prefixed lines through an embedded *log.Logger.
type Logger struct {
	out   *log.Logger
	level Level
}

// New returns a Logger writing to w with the given minimum level; lines
// below level are dropped.
func New(w io.Writer, level Level) *Logger {
	return &Logger{out: log.New(w, "", log.LstdFlags), level: level}
}

// Default returns a Logger writing INFO and above to stdout.
func Default() *Logger {
	return New(os.Stdout, LevelInfo)
}

// SetLevel changes the minimum level this Logger emits.
func (l *Logger) SetLevel(level Level) { l.level = level }

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, "INFO", format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarn, "WARN", format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(LevelError, "ERROR", format, args...)
}

func (l *Logger) logf(level Level, tag, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.out.Print(tag + " " + fmt.Sprintf(format, args...))
}
