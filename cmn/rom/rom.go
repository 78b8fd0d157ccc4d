// Package rom holds the read-mostly process configuration snapshot used
// throughout the messaging core and its drivers.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package rom

import (
	"os"
	"strconv"
	"time"

	"github.com/loomward/commcore/cmn/nlog"
)

// read-mostly process configuration, assigned once at startup from the
// environment (the recognised configuration constants) and read everywhere else
// without synchronization, the same way the teacher's Rom singleton avoids
// repeated GCO.Get() calls on every hot-path check.
type readMostly struct {
	maxMsgIPC     int
	maxMsgDefault int
	msgBuf        int
	sleepInterval time.Duration
	drainDeadline time.Duration
	debugLevel    nlog.Level

	compress          bool
	compressThreshold int
}

var Rom readMostly

const (
	dfltMaxMsgIPC     = 2048
	dfltMaxMsgDefault = 1048576
	dfltMsgBuf        = 2048
	dfltSleepInterval = 250 * time.Millisecond
	dfltDrainDeadline = 5 * time.Second

	// dfltCompressThreshold is the payload size, in bytes, at or above which the
	// multipart chunk path lz4-compresses the body before splitting it into
	// ephemeral-channel chunks. Below it the framing overhead of a second
	// pass outweighs the savings, mirroring why the teacher's stream bundles
	// only ever compress SGL-backed, not small in-memory, payloads.
	dfltCompressThreshold = 4096
)

func init() {
	Rom.maxMsgIPC = envInt("CIS_MSG_MAX_IPC", dfltMaxMsgIPC)
	Rom.maxMsgDefault = envInt("CIS_MSG_MAX", dfltMaxMsgDefault)
	Rom.msgBuf = envInt("CIS_MSG_BUF", dfltMsgBuf)
	Rom.sleepInterval = dfltSleepInterval
	Rom.drainDeadline = dfltDrainDeadline
	Rom.debugLevel = nlog.ParseLevel(os.Getenv("CIS_DEBUG_LEVEL"))
	nlog.SetLevel(Rom.debugLevel)
	Rom.compress = envBool("CIS_COMPRESS", true)
	Rom.compressThreshold = envInt("CIS_COMPRESS_THRESHOLD", dfltCompressThreshold)
}

func (rom *readMostly) MaxMsgIPC() int               { return rom.maxMsgIPC }
func (rom *readMostly) MaxMsgDefault() int           { return rom.maxMsgDefault }
func (rom *readMostly) MsgBuf() int                  { return rom.msgBuf }
func (rom *readMostly) SleepInterval() time.Duration { return rom.sleepInterval }
func (rom *readMostly) DrainDeadline() time.Duration { return rom.drainDeadline }
func (rom *readMostly) DebugLevel() nlog.Level       { return rom.debugLevel }
func (rom *readMostly) CompressionEnabled() bool     { return rom.compress }
func (rom *readMostly) CompressThreshold() int       { return rom.compressThreshold }

func envInt(name string, dflt int) int {
	v := os.Getenv(name)
	if v == "" {
		return dflt
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return dflt
	}
	return n
}

func envBool(name string, dflt bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return dflt
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return dflt
	}
	return b
}
