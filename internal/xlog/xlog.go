// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

/*
Package xlog provides a Logger interface whose nil value disables output.

The log.Logger type of the standard library implements the interface. A
package keeps a Logger variable that is nil in production and set by tests
or by a verbose command line flag. Calling the functions of this package
with a nil Logger does nothing, so no formatting work is done while the
output is disabled.
*/
package xlog

import "fmt"

// Logger is supported by the log.Logger type.
type Logger interface {
	Output(calldepth int, s string) error
}

// Printf prints the arguments using the format string. If the logger
// argument is nil nothing will be printed.
func Printf(l Logger, format string, v ...interface{}) {
	if l != nil {
		l.Output(2, fmt.Sprintf(format, v...))
	}
}

// Println prints the arguments and adds a newline. If the logger argument
// is nil nothing will be printed.
func Println(l Logger, v ...interface{}) {
	if l != nil {
		l.Output(2, fmt.Sprintln(v...))
	}
}

// prefixed adds a fixed prefix to all messages.
type prefixed struct {
	l      Logger
	prefix string
}

func (p prefixed) Output(calldepth int, s string) error {
	return p.l.Output(calldepth+1, p.prefix+s)
}

// Prefix returns a logger that puts prefix in front of every message. A
// nil logger stays nil.
func Prefix(l Logger, prefix string) Logger {
	if l == nil {
		return nil
	}
	return prefixed{l: l, prefix: prefix}
}
