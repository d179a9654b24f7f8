package sdr

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"
)

type fakeServer struct {
	ln       net.Listener
	commands chan [5]byte
	payload  []byte
}

// newFakeServer accepts one connection, speaks the rtl_tcp handshake,
// records tuner commands and streams the payload.
func newFakeServer(t *testing.T, payload []byte) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &fakeServer{ln: ln, commands: make(chan [5]byte, 8), payload: payload}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var header [12]byte
		copy(header[:4], "RTL0")
		binary.BigEndian.PutUint32(header[4:8], 5)   // tuner type
		binary.BigEndian.PutUint32(header[8:12], 29) // gain count
		if _, err := conn.Write(header[:]); err != nil {
			return
		}

		for i := 0; i < 3; i++ {
			var cmd [5]byte
			if _, err := io.ReadFull(conn, cmd[:]); err != nil {
				return
			}
			s.commands <- cmd
		}
		conn.Write(s.payload)
	}()
	return s
}

func (s *fakeServer) nextCommand(t *testing.T) [5]byte {
	t.Helper()
	select {
	case cmd := <-s.commands:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("no command received")
		return [5]byte{}
	}
}

func TestRTLTCPHandshakeAndRead(t *testing.T) {
	payload := make([]byte, 32)
	for i := range payload {
		payload[i] = byte(i)
	}
	srv := newFakeServer(t, payload)

	src := NewRTLTCP(nil)
	cfg := Config{
		Addr:       srv.ln.Addr().String(),
		SampleRate: 960000,
		CenterFreq: 162025000,
		SizeSignal: 16,
		AutoGain:   true,
	}
	if err := src.Init(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	rate := srv.nextCommand(t)
	if rate[0] != cmdSetSampleRate || binary.BigEndian.Uint32(rate[1:]) != 960000 {
		t.Fatalf("first command %v, want sample rate", rate)
	}
	freq := srv.nextCommand(t)
	if freq[0] != cmdSetFrequency || binary.BigEndian.Uint32(freq[1:]) != 162025000 {
		t.Fatalf("second command %v, want frequency", freq)
	}
	gain := srv.nextCommand(t)
	if gain[0] != cmdSetGainMode || binary.BigEndian.Uint32(gain[1:]) != 0 {
		t.Fatalf("third command %v, want automatic gain mode", gain)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	samples, err := src.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != cfg.SizeSignal {
		t.Fatalf("got %d samples, want %d", len(samples), cfg.SizeSignal)
	}
	if samples[1] != complex(2, 3) {
		t.Fatalf("sample 1 = %v, want (2+3i)", samples[1])
	}
}

func TestRTLTCPReadSurvivesDisconnect(t *testing.T) {
	payload := make([]byte, 32)
	for i := range payload {
		payload[i] = byte(i)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	// First connection dies mid-acquisition, the second serves a full
	// window.
	go func() {
		for i := 0; i < 2; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			var header [12]byte
			copy(header[:4], "RTL0")
			if _, err := conn.Write(header[:]); err != nil {
				conn.Close()
				continue
			}
			var cmds [15]byte
			if _, err := io.ReadFull(conn, cmds[:]); err != nil {
				conn.Close()
				continue
			}
			if i == 0 {
				conn.Write(payload[:7])
				conn.Close()
				continue
			}
			conn.Write(payload)
		}
	}()

	src := NewRTLTCP(nil)
	cfg := Config{
		Addr:       ln.Addr().String(),
		SampleRate: 960000,
		CenterFreq: 162025000,
		SizeSignal: 16,
	}
	if err := src.Init(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	samples, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("read across a disconnect: %v", err)
	}
	if len(samples) != cfg.SizeSignal {
		t.Fatalf("got %d samples, want %d", len(samples), cfg.SizeSignal)
	}
	if samples[0] != complex(0, 1) {
		t.Fatalf("sample 0 = %v, want (0+1i)", samples[0])
	}
}

func TestRTLTCPRejectsWrongProtocol(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("HTTP/1.1 400 "))
		conn.Close()
	}()

	src := NewRTLTCP(nil)
	err = src.Init(context.Background(), Config{Addr: ln.Addr().String(), SizeSignal: 4})
	if err == nil {
		t.Fatal("non rtl_tcp peer accepted")
	}
}

func TestRTLTCPInitValidation(t *testing.T) {
	src := NewRTLTCP(nil)
	if err := src.Init(context.Background(), Config{SizeSignal: 4}); err == nil {
		t.Fatal("missing address accepted")
	}
	if err := src.Init(context.Background(), Config{Addr: "127.0.0.1:1", SizeSignal: 0}); err == nil {
		t.Fatal("zero acquisition size accepted")
	}
}

func TestRTLTCPReadRequiresConnection(t *testing.T) {
	src := NewRTLTCP(nil)
	if _, err := src.Read(context.Background()); err == nil {
		t.Fatal("read on unconnected source succeeded")
	}
}
