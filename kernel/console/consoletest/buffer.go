// Package consoletest provides an in-memory console.Writer used across the
// kernel's test suites wherever a real UART would otherwise be required,
// the same role mockTTY() and the Ega frame-buffer console play in the
// teacher's panic_test.go.
package consoletest

import "vellum/kernel/console"

// Buffer accumulates everything written to it and renders it back as a
// string for test assertions.
type Buffer struct {
	Data []byte
}

// WriteByte implements console.Writer.
func (b *Buffer) WriteByte(c byte) { b.Data = append(b.Data, c) }

// WriteString implements console.Writer.
func (b *Buffer) WriteString(s string) { b.Data = append(b.Data, s...) }

// String returns everything written so far.
func (b *Buffer) String() string { return string(b.Data) }

var _ console.Writer = (*Buffer)(nil)
