// Package nlog - aistore-style logger, trimmed to level filtering + a single
// writer (no buffering/rotation - out of scope for this core).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import "fmt"

func Debugf(format string, args ...any) { write(Debug, "D", format, args...) }
func Debugln(args ...any)               { write(Debug, "D", fmtln(args)) }

func Infof(format string, args ...any) { write(Info, "I", format, args...) }
func Infoln(args ...any)               { write(Info, "I", fmtln(args)) }

func Warningf(format string, args ...any) { write(Info, "W", format, args...) }
func Warningln(args ...any)               { write(Info, "W", fmtln(args)) }

func Errorf(format string, args ...any) { write(Error, "E", format, args...) }
func Errorln(args ...any)               { write(Error, "E", fmtln(args)) }

// Depth variants exist for call-site parity with the teacher's API; this
// logger doesn't walk the stack, so depth is accepted and ignored.
func InfoDepth(_ int, args ...any)  { write(Info, "I", fmtln(args)) }
func ErrorDepth(_ int, args ...any) { write(Error, "E", fmtln(args)) }

func fmtln(args []any) string {
	if len(args) == 0 {
		return ""
	}
	s := ""
	for i, a := range args {
		if i > 0 {
			s += " "
		}
		s += toStr(a)
	}
	return s
}

func toStr(a any) string {
	if s, ok := a.(string); ok {
		return s
	}
	return fmt.Sprint(a)
}
