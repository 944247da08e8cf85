package modbus

import (
	"bytes"
	"errors"
	"testing"
)

// buildFrame appends CRC to a raw PDU prefix for use as test input.
func buildFrame(prefix ...byte) []byte { return AddChecksum(append([]byte(nil), prefix...)) }

func TestExecuteFC5WriteSingleCoilEcho(t *testing.T) {
	srv := NewServer(0x0F)
	var coil bool
	srv.CoilSetter(0x1003, func(v bool) { coil = v })

	req := buildFrame(0x0F, 0x05, 0x10, 0x03, 0xFF, 0x00)
	reply, err := srv.Execute(req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !bytes.Equal(reply, req) {
		t.Fatalf("reply = % X, want echo % X", reply, req)
	}
	if !coil {
		t.Fatal("coil was not set to true")
	}
}

func TestExecuteFC5InvalidValue(t *testing.T) {
	srv := NewServer(0x0F)
	srv.CoilSetter(0x1003, func(bool) {})

	req := buildFrame(0x0F, 0x05, 0x10, 0x03, 0x00, 0x01)
	_, err := srv.Execute(req)
	if !errors.Is(err, ErrInvalidDataFrame) {
		t.Fatalf("err = %v, want InvalidDataFrame", err)
	}
}

func TestExecuteFC3ReadHoldingRegisters(t *testing.T) {
	srv := NewServer(0x0F)
	values := map[uint16]uint16{0x2001: 0xAAAA, 0x2002: 0xBBBB, 0x2003: 0xCCCC, 0x2004: 0xDDDD}
	for addr, v := range values {
		v := v
		srv.HoldingRegisterGetter(addr, func() uint16 { return v })
	}

	req := buildFrame(0x0F, 0x03, 0x20, 0x01, 0x00, 0x04)
	reply, err := srv.Execute(req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := buildFrame(0x0F, 0x03, 0x08, 0xAA, 0xAA, 0xBB, 0xBB, 0xCC, 0xCC, 0xDD, 0xDD)
	if !bytes.Equal(reply, want) {
		t.Fatalf("reply = % X, want % X", reply, want)
	}
}

func TestExecuteInvalidCRC(t *testing.T) {
	srv := NewServer(0x0F)
	req := buildFrame(0x0F, 0x03, 0x20, 0x01, 0x00, 0x04)
	req[len(req)-1] ^= 0xFF // corrupt CRC

	_, err := srv.Execute(req)
	if !errors.Is(err, ErrInvalidCRC) {
		t.Fatalf("err = %v, want InvalidCRC", err)
	}
}

func TestExecuteUnknownRegister(t *testing.T) {
	srv := NewServer(0x0F)
	srv.HoldingRegisterGetter(0x2001, func() uint16 { return 1 })

	req := buildFrame(0x0F, 0x03, 0x20, 0x01, 0x00, 0x02) // asks for 2 registers, only 1 known
	_, err := srv.Execute(req)
	if !errors.Is(err, ErrUnknownRegister) {
		t.Fatalf("err = %v, want UnknownRegister", err)
	}
}

func TestExecuteUnknownFunctionCode(t *testing.T) {
	srv := NewServer(0x0F)
	req := buildFrame(0x0F, 0x63)
	_, err := srv.Execute(req)
	if !errors.Is(err, ErrUnknownFunctionCode) {
		t.Fatalf("err = %v, want UnknownFunctionCode", err)
	}
}

func TestExecuteInvalidAddress(t *testing.T) {
	srv := NewServer(0x0F)
	srv.HoldingRegisterGetter(1, func() uint16 { return 0 })
	req := buildFrame(0x10, 0x03, 0x00, 0x01, 0x00, 0x01)
	_, err := srv.Execute(req)
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("err = %v, want InvalidAddress", err)
	}
}

func TestExecuteAcceptAllAddresses(t *testing.T) {
	srv := NewServer(0x0F)
	srv.AcceptAllAddresses = true
	srv.HoldingRegisterGetter(1, func() uint16 { return 7 })
	req := buildFrame(0x99, 0x03, 0x00, 0x01, 0x00, 0x01)
	if _, err := srv.Execute(req); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestExecuteFC15WriteMultipleCoils(t *testing.T) {
	srv := NewServer(0x0F)
	got := map[uint16]bool{}
	for addr := uint16(10); addr < 13; addr++ {
		addr := addr
		srv.CoilSetter(addr, func(v bool) { got[addr] = v })
	}
	// 3 coils: true, false, true -> packed bits 0b00000101 = 0x05
	req := buildFrame(0x0F, 0x0F, 0x00, 0x0A, 0x00, 0x03, 0x01, 0x05)
	reply, err := srv.Execute(req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := buildFrame(0x0F, 0x0F, 0x00, 0x0A, 0x00, 0x03)
	if !bytes.Equal(reply, want) {
		t.Fatalf("reply = % X, want % X", reply, want)
	}
	if !got[10] || got[11] || !got[12] {
		t.Fatalf("coils = %v, want {10:true,11:false,12:true}", got)
	}
}

func TestCRCRoundTrip(t *testing.T) {
	data := []byte{0x0F, 0x03, 0x20, 0x01, 0x00, 0x04}
	framed := AddChecksum(append([]byte(nil), data...))
	if !IsValid(framed) {
		t.Fatal("IsValid(AddChecksum(data)) = false, want true")
	}
	framed[0] ^= 0xFF
	if IsValid(framed) {
		t.Fatal("corrupting a byte should falsify the CRC")
	}
}
