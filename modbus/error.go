// Package modbus implements C9 (codec), C10 (server) and C11 (client)
// from spec.md §4.9-§4.11: CRC-16 framing, a register-accessor table
// dispatching PDUs, and typed client requests built over a session
// client. Grounded on original_source/src/modbus/{api,server,client}.cpp.
/*
 * Copyright (c) 2024, delameta. All rights reserved.
 */
package modbus

import "fmt"

// FunctionCode is the second byte of a Modbus PDU (spec.md §3 "Modbus
// PDU").
type FunctionCode uint8

const (
	FunctionCodeReadCoils             FunctionCode = 1
	FunctionCodeReadDiscreteInputs    FunctionCode = 2
	FunctionCodeReadHoldingRegisters  FunctionCode = 3
	FunctionCodeReadInputRegisters    FunctionCode = 4
	FunctionCodeWriteSingleCoil       FunctionCode = 5
	FunctionCodeWriteSingleRegister   FunctionCode = 6
	FunctionCodeReadExceptionStatus   FunctionCode = 7
	FunctionCodeDiagnostic            FunctionCode = 8
	FunctionCodeWriteMultipleCoils    FunctionCode = 15
	FunctionCodeWriteMultipleRegisters FunctionCode = 16
)

// Code enumerates modbus::Error::Code from the reference implementation
// (spec.md §3 "Error").
type Code int

const (
	InvalidCRC Code = iota
	InvalidAddress
	UnknownRegister
	UnknownFunctionCode
	UnknownSubfunction
	InvalidDataFrame
	InvalidSetValue
	ExceptionStatusIsNotDefined
)

var codeText = map[Code]string{
	InvalidCRC:                  "Invalid CRC",
	InvalidAddress:              "Invalid address",
	UnknownRegister:             "Unknown register",
	UnknownFunctionCode:         "Unknown function code",
	UnknownSubfunction:          "Unknown sub function",
	InvalidDataFrame:            "Invalid data frame",
	InvalidSetValue:             "Invalid set value",
	ExceptionStatusIsNotDefined: "Unknown status getter is not defined",
}

// Error is modbus::Error: a protocol-kind error distinct from the
// transport-kind cmn/xerr.Error (spec.md §3 "Error": "Layered kinds
// wrap this base").
type Error struct {
	Code Code
	What string
}

func newError(c Code) *Error { return &Error{Code: c, What: codeText[c]} }

func (e *Error) Error() string { return fmt.Sprintf("modbus: %s", e.What) }

// Is lets errors.Is(err, modbus.ErrInvalidCRC)-style checks work by
// comparing codes instead of pointer identity.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Code == e.Code
}

// Sentinel errors, one per Code, for errors.Is comparisons.
var (
	ErrInvalidCRC                  = newError(InvalidCRC)
	ErrInvalidAddress              = newError(InvalidAddress)
	ErrUnknownRegister             = newError(UnknownRegister)
	ErrUnknownFunctionCode         = newError(UnknownFunctionCode)
	ErrUnknownSubfunction          = newError(UnknownSubfunction)
	ErrInvalidDataFrame            = newError(InvalidDataFrame)
	ErrInvalidSetValue             = newError(InvalidSetValue)
	ErrExceptionStatusIsNotDefined = newError(ExceptionStatusIsNotDefined)
)
