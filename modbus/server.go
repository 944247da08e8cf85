package modbus

import (
	"context"
	"sync"

	"github.com/aufam/delameta-go/descriptor"
	"github.com/aufam/delameta-go/session"
	"github.com/aufam/delameta-go/stream"
)

// Server is C10: a register-accessor table dispatching Modbus PDUs
// (spec.md §3 "Modbus Server State", §4.10). Accessor registration
// takes mu's write lock and Execute holds its read lock for the whole
// dispatch, so accessors may also be registered while the server runs.
type Server struct {
	ServerAddress uint8

	// AcceptAllAddresses skips the address-byte check in Execute, used
	// when the transport already implies the target (spec.md §4.10
	// "accept_all_addresses", e.g. Modbus TCP).
	AcceptAllAddresses bool

	mu sync.RWMutex

	coilGetters    map[uint16]func() bool
	coilSetters    map[uint16]func(bool)
	holdingGetters map[uint16]func() uint16
	holdingSetters map[uint16]func(uint16)
	discreteInputs map[uint16]func() bool
	analogInputs   map[uint16]func() uint16

	exceptionStatus func() uint8
	diagnostics     map[uint16]func(uint16) (uint16, error)

	// Logger, when set, observes every request/reply pair.
	Logger func(peer string, req, reply []byte)
}

// NewServer constructs an empty register table bound to serverAddress.
func NewServer(serverAddress uint8) *Server {
	return &Server{
		ServerAddress:  serverAddress,
		coilGetters:    map[uint16]func() bool{},
		coilSetters:    map[uint16]func(bool){},
		holdingGetters: map[uint16]func() uint16{},
		holdingSetters: map[uint16]func(uint16){},
		discreteInputs: map[uint16]func() bool{},
		analogInputs:   map[uint16]func() uint16{},
		diagnostics:    map[uint16]func(uint16) (uint16, error){},
	}
}

func (s *Server) CoilGetter(addr uint16, getter func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coilGetters[addr] = getter
}

func (s *Server) CoilSetter(addr uint16, setter func(bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coilSetters[addr] = setter
}

func (s *Server) HoldingRegisterGetter(addr uint16, getter func() uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdingGetters[addr] = getter
}

func (s *Server) HoldingRegisterSetter(addr uint16, setter func(uint16)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdingSetters[addr] = setter
}

func (s *Server) DiscreteInputGetter(addr uint16, getter func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discreteInputs[addr] = getter
}

func (s *Server) AnalogInputGetter(addr uint16, getter func() uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analogInputs[addr] = getter
}

func (s *Server) ExceptionStatusGetter(getter func() uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exceptionStatus = getter
}

func (s *Server) DiagnosticGetter(subFunction uint16, getter func(uint16) (uint16, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics[subFunction] = getter
}

// Execute validates CRC and address, dispatches on function code, and
// returns the CRC-appended reply (spec.md §4.10 "execute(frame)").
func (s *Server) Execute(data []byte) ([]byte, error) {
	if !IsValid(data) {
		return nil, ErrInvalidCRC
	}
	if len(data) < 2 {
		return nil, ErrInvalidDataFrame
	}
	address := data[0]
	functionCode := FunctionCode(data[1])

	if !s.AcceptAllAddresses && address != s.ServerAddress {
		return nil, ErrInvalidAddress
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []byte
	var err error
	switch functionCode {
	case FunctionCodeReadCoils:
		res, err = readBoolHelper(data, s.coilGetters)
	case FunctionCodeReadDiscreteInputs:
		res, err = readBoolHelper(data, s.discreteInputs)
	case FunctionCodeReadHoldingRegisters:
		res, err = readU16Helper(data, s.holdingGetters)
	case FunctionCodeReadInputRegisters:
		res, err = readU16Helper(data, s.analogInputs)
	case FunctionCodeWriteSingleCoil:
		res, err = writeSingleCoilHelper(data, s.coilSetters)
	case FunctionCodeWriteSingleRegister:
		res, err = writeSingleRegisterHelper(data, s.holdingSetters)
	case FunctionCodeReadExceptionStatus:
		res, err = s.executeReadExceptionStatus(data)
	case FunctionCodeDiagnostic:
		res, err = s.executeDiagnostic(data)
	case FunctionCodeWriteMultipleCoils:
		res, err = writeMultipleBoolHelper(data, s.coilSetters)
	case FunctionCodeWriteMultipleRegisters:
		res, err = writeMultipleU16Helper(data, s.holdingSetters)
	default:
		return nil, ErrUnknownFunctionCode
	}
	if err != nil {
		return nil, err
	}
	return AddChecksum(res), nil
}

func readBoolHelper(data []byte, getters map[uint16]func() bool) ([]byte, error) {
	if len(data) != 8 {
		return nil, ErrInvalidDataFrame
	}
	n := uint16(data[4])<<8 | uint16(data[5])
	if n == 0 {
		return nil, ErrInvalidDataFrame
	}
	if len(getters) == 0 || int(n) > len(getters) {
		return nil, ErrUnknownRegister
	}
	start := uint16(data[2])<<8 | uint16(data[3])
	length := (n + 7) / 8

	res := make([]byte, 3+length)
	res[0], res[1], res[2] = data[0], data[1], byte(length)

	bitCount := 0
	ptr := 3
	for reg := start; reg < start+n; reg++ {
		getter, ok := getters[reg]
		if !ok {
			return nil, ErrUnknownRegister
		}
		if getter() {
			res[ptr] |= 1 << bitCount
		}
		bitCount++
		if bitCount == 8 {
			bitCount = 0
			ptr++
		}
	}
	return res, nil
}

func readU16Helper(data []byte, getters map[uint16]func() uint16) ([]byte, error) {
	if len(data) != 8 {
		return nil, ErrInvalidDataFrame
	}
	n := uint16(data[4])<<8 | uint16(data[5])
	if n == 0 {
		return nil, ErrInvalidDataFrame
	}
	if len(getters) == 0 || int(n) > len(getters) {
		return nil, ErrUnknownRegister
	}
	start := uint16(data[2])<<8 | uint16(data[3])
	length := n * 2

	res := make([]byte, 3+length)
	res[0], res[1], res[2] = data[0], data[1], byte(length)

	ptr := 3
	for reg := start; reg < start+n; reg++ {
		getter, ok := getters[reg]
		if !ok {
			return nil, ErrUnknownRegister
		}
		v := getter()
		res[ptr] = byte(v >> 8)
		res[ptr+1] = byte(v)
		ptr += 2
	}
	return res, nil
}

func writeSingleCoilHelper(data []byte, setters map[uint16]func(bool)) ([]byte, error) {
	if len(data) != 8 {
		return nil, ErrInvalidDataFrame
	}
	reg := uint16(data[2])<<8 | uint16(data[3])
	value := uint16(data[4])<<8 | uint16(data[5])
	setter, ok := setters[reg]
	if !ok {
		return nil, ErrUnknownRegister
	}
	switch value {
	case 0xFF00:
		setter(true)
	case 0x0000:
		setter(false)
	default:
		return nil, ErrInvalidDataFrame
	}
	return append([]byte(nil), data[:6]...), nil
}

func writeSingleRegisterHelper(data []byte, setters map[uint16]func(uint16)) ([]byte, error) {
	if len(data) != 8 {
		return nil, ErrInvalidDataFrame
	}
	reg := uint16(data[2])<<8 | uint16(data[3])
	value := uint16(data[4])<<8 | uint16(data[5])
	setter, ok := setters[reg]
	if !ok {
		return nil, ErrUnknownRegister
	}
	setter(value)
	return append([]byte(nil), data[:6]...), nil
}

func writeMultipleBoolHelper(data []byte, setters map[uint16]func(bool)) ([]byte, error) {
	if len(data) <= 9 {
		return nil, ErrInvalidDataFrame
	}
	n := uint16(data[4])<<8 | uint16(data[5])
	if n == 0 {
		return nil, ErrInvalidDataFrame
	}
	if len(setters) == 0 || int(n) > len(setters) {
		return nil, ErrUnknownRegister
	}
	start := uint16(data[2])<<8 | uint16(data[3])
	nBytes := data[6]
	length := byte((n + 7) / 8)
	if length != nBytes {
		return nil, ErrInvalidDataFrame
	}

	bitIndex := 0
	bufIndex := 7
	for reg := start; reg < start+n; reg++ {
		setter, ok := setters[reg]
		if !ok {
			return nil, ErrUnknownRegister
		}
		if bufIndex >= len(data) {
			return nil, ErrInvalidDataFrame
		}
		setter(data[bufIndex]&(1<<bitIndex) != 0)
		bitIndex++
		if bitIndex == 8 {
			bitIndex = 0
			bufIndex++
		}
	}
	return append([]byte(nil), data[:6]...), nil
}

func writeMultipleU16Helper(data []byte, setters map[uint16]func(uint16)) ([]byte, error) {
	if len(data) <= 9 {
		return nil, ErrInvalidDataFrame
	}
	n := uint16(data[4])<<8 | uint16(data[5])
	if n == 0 {
		return nil, ErrInvalidDataFrame
	}
	if len(setters) == 0 || int(n) > len(setters) {
		return nil, ErrUnknownRegister
	}
	start := uint16(data[2])<<8 | uint16(data[3])
	nBytes := data[6]
	length := byte(n * 2)
	if length != nBytes {
		return nil, ErrInvalidDataFrame
	}

	bufIndex := 7
	for reg := start; reg < start+n; reg++ {
		setter, ok := setters[reg]
		if !ok {
			return nil, ErrUnknownRegister
		}
		if bufIndex+1 >= len(data) {
			return nil, ErrInvalidDataFrame
		}
		setter(uint16(data[bufIndex])<<8 | uint16(data[bufIndex+1]))
		bufIndex += 2
	}
	return append([]byte(nil), data[:6]...), nil
}

func (s *Server) executeReadExceptionStatus(data []byte) ([]byte, error) {
	if len(data) != 4 {
		return nil, ErrInvalidDataFrame
	}
	if s.exceptionStatus == nil {
		return nil, ErrExceptionStatusIsNotDefined
	}
	return []byte{data[0], data[1], s.exceptionStatus()}, nil
}

func (s *Server) executeDiagnostic(data []byte) ([]byte, error) {
	if len(data) != 8 {
		return nil, ErrInvalidDataFrame
	}
	subFunction := uint16(data[2])<<8 | uint16(data[3])
	input := uint16(data[4])<<8 | uint16(data[5])

	getter, ok := s.diagnostics[subFunction]
	if !ok {
		return nil, ErrUnknownSubfunction
	}
	output, err := getter(input)
	if err != nil {
		return nil, err
	}
	return []byte{data[0], data[1], data[2], data[3], byte(output >> 8), byte(output)}, nil
}

// Bind installs Execute as a session.FramingHandler (spec.md §4.10
// "bind(session_server)"): on success it replies with the CRC-appended
// PDU; on error it logs and sends nothing, matching Modbus bus
// convention where a malformed request simply times out (spec.md §7
// "the Modbus server logs protocol errors and sends no reply").
func (s *Server) Bind() session.FramingHandler {
	return func(_ context.Context, _ descriptor.Descriptor, peer string, frame []byte) (*stream.Stream, error) {
		reply, err := s.Execute(frame)
		if err != nil {
			return nil, err
		}
		if s.Logger != nil {
			s.Logger(peer, frame, reply)
		}
		return stream.FromBytes(reply), nil
	}
}
