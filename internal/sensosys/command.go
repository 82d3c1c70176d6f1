// internal/sensosys/command.go
package sensosys

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Wire format of the SensoSys bus. Requests are ASCII frames
//
//	'#' <AA> <CMD> [args] CR
//
// where AA is the two-digit uppercase hex bus address and CMD a
// two-character command code. Responses are
//
//	'*' <AA> <payload> '|' <SS> CR
//
// with SS the additive mod-256 checksum of the payload bytes, as two
// uppercase hex digits. Payload fields are separated by ';'.
const (
	frameRequestStart  = '#'
	frameResponseStart = '*'
	frameChecksumSep   = '|'
	frameEnd           = '\r'
	fieldSep           = ";"
)

// Command codes understood by all instrument families.
const (
	cmdReadName            = "RN"
	cmdReadSerialNumber    = "RS"
	cmdReadCalibrationDate = "RD"
	cmdReadBatteryState    = "RB"
)

// Family-specific command codes.
const (
	cmdAnemoConfiguration  = "AC"
	cmdAnemoIndicator      = "AI"
	cmdAnemoMeasurement    = "AM"
	cmdThermConfiguration  = "TC"
	cmdThermIndicator      = "TI"
	cmdThermTemperatures   = "TM"
	cmdHygBarConfiguration = "HC"
	cmdHygBarMeasurement   = "HM"
)

var (
	// ErrNoResponse marks an address that stayed silent within the
	// read timeout. It is not a failure of the bus.
	ErrNoResponse = errors.New("no response from instrument")

	ErrBadFrame    = errors.New("malformed response frame")
	ErrBadChecksum = errors.New("response checksum mismatch")
)

// buildCommand assembles a request frame for the given address.
func buildCommand(address int, command string, args string) []byte {
	var b bytes.Buffer
	b.WriteByte(frameRequestStart)
	fmt.Fprintf(&b, "%02X", address)
	b.WriteString(command)
	b.WriteString(args)
	b.WriteByte(frameEnd)
	return b.Bytes()
}

// parseResponse validates a response frame and extracts its payload.
// The trailing CR is expected to be already stripped by the reader.
func parseResponse(frame []byte) (address int, payload string, err error) {
	if len(frame) < 5 || frame[0] != frameResponseStart {
		return 0, "", ErrBadFrame
	}

	addr, err := strconv.ParseUint(string(frame[1:3]), 16, 8)
	if err != nil {
		return 0, "", ErrBadFrame
	}

	sep := bytes.LastIndexByte(frame, frameChecksumSep)
	if sep < 3 || len(frame)-sep != 3 {
		return 0, "", ErrBadFrame
	}

	body := frame[3:sep]
	want, err := strconv.ParseUint(string(frame[sep+1:]), 16, 8)
	if err != nil {
		return 0, "", ErrBadFrame
	}
	if checksum(body) != byte(want) {
		return 0, "", ErrBadChecksum
	}

	return int(addr), string(body), nil
}

// checksum is the additive mod-256 checksum used by the instruments.
func checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// parseFloats splits a payload into exactly n numeric fields.
func parseFloats(payload string, n int) ([]float64, error) {
	fields := strings.Split(payload, fieldSep)
	if len(fields) != n {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrBadFrame, n, len(fields))
	}

	values := make([]float64, n)
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d %q is not numeric", ErrBadFrame, i, field)
		}
		values[i] = v
	}
	return values, nil
}
