// Package fastmodbus implements the fast scan extension of Modbus RTU,
// which finds devices on an RS-485 bus that do not answer regular
// requests because their address is unknown or conflicting.
//
// A Scanner broadcasts a start request and keeps sending continue
// requests while devices announce themselves with their serial
// number and current address. The scan succeeds if exactly one
// device answered.
package fastmodbus
