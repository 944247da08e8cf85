package modbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/aufam/delameta-go/descriptor"
	"github.com/aufam/delameta-go/modbus"
	"github.com/aufam/delameta-go/session"
)

func TestClientServerRoundTripOverTCP(t *testing.T) {
	srv := modbus.NewServer(0x01)
	registers := map[uint16]uint16{5: 111, 6: 222}
	for addr, v := range registers {
		v := v
		srv.HoldingRegisterGetter(addr, func() uint16 { return v })
	}

	acc, err := session.ListenTCP("127.0.0.1:0", descriptor.NetOptions{KeepAlive: true, Max: -1})
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	sessionServer, err := session.NewServer(acc, srv.Bind(), 2)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	done := make(chan struct{})
	go func() { sessionServer.Start(context.Background()); close(done) }()
	defer func() { sessionServer.Stop(); <-done }()

	cli := modbus.NewClient("tcp://"+acc.Addr().String()+"?timeout=2", 0x01)
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := cli.ReadHoldingRegisters(ctx, 5, 2)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters: %v", err)
	}
	if len(got) != 2 || got[0] != 111 || got[1] != 222 {
		t.Fatalf("got %v, want [111 222]", got)
	}
}
