// Package main provides commpipe, a tiny end-to-end exerciser for the
// comm package's five modes: plain send, plain recv, client, server, and a
// one-process demo that pairs a send/recv endpoint over any transport kind.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/loomward/commcore/cmn/nlog"
	"github.com/loomward/commcore/comm"
	"github.com/loomward/commcore/comm/driver"
)

var flags struct {
	mode    string
	kind    string
	name    string
	address string
	payload string
	count   int
	help    bool
}

const helpMsg = `Build:
	go build -o commpipe ./cmd/commpipe

Examples:
	# two processes sharing a zmq address, one sending, one receiving
	# (ipc queues live inside one process, so use -mode=demo for ipc)
	commpipe -mode=recv -kind=zmq -address=127.0.0.1:9930 &
	commpipe -mode=send -kind=zmq -address=127.0.0.1:9930 -payload=hello -count=3

	# client/server round trip over rpc
	commpipe -mode=server -kind=rpc -address=127.0.0.1:9931 &
	commpipe -mode=client -kind=rpc -address=127.0.0.1:9931 -payload=ping -count=2

	# single-process demo: pairs a sender and receiver in one run
	commpipe -mode=demo -kind=ipc -payload=hello -count=5
`

func main() {
	flag.StringVar(&flags.mode, "mode", "demo", "one of: send, recv, client, server, demo")
	flag.StringVar(&flags.kind, "kind", "ipc", "transport kind: ipc, zmq, rpc, ascii_file, ascii_table, ascii_table_array")
	flag.StringVar(&flags.name, "name", "", "endpoint name (address looked up from env if -address is empty)")
	flag.StringVar(&flags.address, "address", "", "endpoint address; allocated fresh when empty")
	flag.StringVar(&flags.payload, "payload", "hello", "payload to send (send/client/demo modes)")
	flag.IntVar(&flags.count, "count", 1, "number of messages to send, or to expect in server mode (recv mode reads until EOF)")
	flag.BoolVar(&flags.help, "h", false, "show usage")
	flag.Parse()

	if flags.help {
		fmt.Print(helpMsg)
		return
	}

	var err error
	switch flags.mode {
	case "send":
		err = runSend()
	case "recv":
		err = runRecv()
	case "client":
		err = runClient()
	case "server":
		err = runServer()
	case "demo":
		err = runDemo()
	default:
		err = errors.New("unknown -mode: " + flags.mode)
	}
	if err != nil {
		nlog.Errorf("commpipe: %v", err)
		os.Exit(1)
	}
	comm.RunExitDrain()
}

func runSend() error {
	ep, err := comm.Open(flags.name, flags.address, driver.Send, flags.kind)
	if err != nil {
		return err
	}
	defer ep.Release()
	for i := 0; i < flags.count; i++ {
		payload := flags.payload
		if flags.count > 1 {
			payload += "-" + strconv.Itoa(i)
		}
		if _, err := ep.Send([]byte(payload)); err != nil {
			return err
		}
		fmt.Println("sent:", payload)
	}
	_, err = ep.Send(comm.EOFSentinel)
	return err
}

func runRecv() error {
	ep, err := comm.Open(flags.name, flags.address, driver.Recv, flags.kind)
	if err != nil {
		return err
	}
	defer ep.Release()
	buf := make([]byte, 4096)
	for {
		out, n, err := ep.Recv(buf, true)
		if errors.Is(err, comm.ErrEOF) {
			fmt.Println("recv: EOF")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("recv: %s\n", out[:n])
	}
}

func runClient() error {
	c, err := comm.NewClient(flags.name, flags.address, flags.kind)
	if err != nil {
		return err
	}
	defer c.Release()
	for i := 0; i < flags.count; i++ {
		payload := flags.payload
		if flags.count > 1 {
			payload += "-" + strconv.Itoa(i)
		}
		if _, err := c.Send([]byte(payload)); err != nil {
			return err
		}
		fmt.Println("request:", payload)
	}
	buf := make([]byte, 4096)
	for i := 0; i < flags.count; i++ {
		out, n, err := c.Recv(buf, true)
		if err != nil {
			return err
		}
		fmt.Printf("reply: %s\n", out[:n])
	}
	return nil
}

func runServer() error {
	s, err := comm.NewServer(flags.name, flags.address, flags.kind)
	if err != nil {
		return err
	}
	defer s.Release()
	buf := make([]byte, 4096)
	for i := 0; i < flags.count; i++ {
		out, n, err := s.Recv(buf, true)
		if err != nil {
			return err
		}
		fmt.Printf("request: %s\n", out[:n])
		reply := append(append([]byte{}, out[:n]...), []byte("-ack")...)
		if _, err := s.Send(reply); err != nil {
			return err
		}
		fmt.Printf("reply: %s\n", reply)
	}
	return nil
}

// runDemo pairs a sender and receiver of the requested kind inside one
// process, so the tool is runnable without juggling two terminals.
func runDemo() error {
	addr := flags.address
	if addr == "" {
		drv, err := driver.Get(flags.kind)
		if err != nil {
			return err
		}
		addr, err = drv.NewAddress()
		if err != nil {
			return err
		}
	}
	recvEp, err := comm.Open("", addr, driver.Recv, flags.kind)
	if err != nil {
		return err
	}
	// File transports never propagate EOF, so the reader stops after the
	// expected message count instead of waiting for the sentinel.
	fileKind := flags.kind == "ascii_file" || flags.kind == "ascii_table" || flags.kind == "ascii_table_array"
	recvDone := make(chan error, 1)
	go func() {
		ep := recvEp
		defer ep.Release()
		buf := make([]byte, 4096)
		for i := 0; ; i++ {
			if fileKind && i == flags.count {
				recvDone <- nil
				return
			}
			out, n, err := ep.Recv(buf, true)
			if errors.Is(err, comm.ErrEOF) {
				recvDone <- nil
				return
			}
			if err != nil {
				recvDone <- err
				return
			}
			fmt.Printf("recv: %s\n", out[:n])
		}
	}()

	ep, err := comm.Open("", addr, driver.Send, flags.kind)
	if err != nil {
		return err
	}
	for i := 0; i < flags.count; i++ {
		payload := flags.payload + "-" + strconv.Itoa(i)
		if _, err := ep.Send([]byte(payload)); err != nil {
			ep.Release()
			return err
		}
		fmt.Println("sent:", payload)
	}
	if _, err := ep.Send(comm.EOFSentinel); err != nil {
		ep.Release()
		return err
	}
	ep.Release()
	return <-recvDone
}
