// Package kfmt provides a minimal, allocation-free Printf, grounded on the
// role gopheros's kernel/kfmt/early package plays: large stretches of the
// boot sequence — everything before VMM.Init finishes building the real
// kernel heap — run with no working allocator, so a real fmt.Printf (which
// boxes its arguments via runtime.convT2E/newobject) would crash the
// kernel. The verb set is the same subset early.Printf supports, plus %p
// and %c; the scanning and integer-formatting code below is its own
// implementation, not a port.
package kfmt

import (
	"vellum/kernel/console"
	"vellum/kernel/mem"
)

var (
	errMissingArg   = "(MISSING)"
	errWrongArgType = "%!(WRONGTYPE)"
	errNoVerb       = "%!(NOVERB)"
	errExtraArg     = "%!(EXTRA)"
	trueText        = "true"
	falseText       = "false"

	out console.Writer
)

// SetOutput installs the console that Printf writes to. Passing nil makes
// Printf a no-op, used before a console driver has been installed.
func SetOutput(w console.Writer) {
	out = w
}

// Printf supports the following subset of fmt.Printf's verbs:
//
//	%s  the uninterpreted bytes of a string or []byte
//	%o  integer, base 8
//	%d  integer, base 10
//	%x  integer, base 16, lower-case
//	%p  a mem.PhysAddr or mem.VirtAddr, formatted like %x
//	%t  "true" or "false"
//	%c  a single byte
//
// Width is an optional decimal number immediately preceding the verb.
// Strings and base-10 integers are left-padded with spaces; base-8/16
// integers are left-padded with zeroes.
//
// Printf does not support %v or io.Stringer: checking an argument's dynamic
// type against an interface would require the itab machinery the Go
// runtime has not finished bootstrapping yet at the point this function is
// first needed.
func Printf(format string, args ...interface{}) {
	if out == nil {
		return
	}

	p := printer{args: args}
	i := 0
	for i < len(format) {
		if format[i] != '%' {
			start := i
			for i < len(format) && format[i] != '%' {
				i++
			}
			out.WriteString(format[start:i])
			continue
		}
		i++

		if i < len(format) && format[i] == '%' {
			out.WriteByte('%')
			i++
			continue
		}

		width := 0
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			width = width*10 + int(format[i]-'0')
			i++
		}

		if i >= len(format) {
			out.WriteString(errNoVerb)
			break
		}

		verb := format[i]
		i++
		if !p.emit(verb, width) {
			out.WriteString(errNoVerb)
		}
	}

	for p.next < len(p.args) {
		out.WriteString(errExtraArg)
		p.next++
	}
}

// printer tracks which positional argument the next verb consumes.
type printer struct {
	args []interface{}
	next int
}

// emit renders the argument for verb at width, returning false if verb
// isn't one Printf recognizes.
func (p *printer) emit(verb byte, width int) bool {
	switch verb {
	case 'd', 'o', 'x', 'p', 's', 't', 'c':
	default:
		return false
	}

	if p.next >= len(p.args) {
		out.WriteString(errMissingArg)
		return true
	}
	arg := p.args[p.next]
	p.next++

	switch verb {
	case 'o':
		writeInt(arg, 8, width)
	case 'd':
		writeInt(arg, 10, width)
	case 'x', 'p':
		writeInt(arg, 16, width)
	case 's':
		writeString(arg, width)
	case 't':
		writeBool(arg)
	case 'c':
		writeByteVerb(arg)
	}
	return true
}

func writeRepeated(ch byte, n int) {
	for ; n > 0; n-- {
		out.WriteByte(ch)
	}
}

func writeBool(v interface{}) {
	b, ok := v.(bool)
	if !ok {
		out.WriteString(errWrongArgType)
		return
	}
	if b {
		out.WriteString(trueText)
	} else {
		out.WriteString(falseText)
	}
}

func writeByteVerb(v interface{}) {
	b, ok := v.(byte)
	if !ok {
		out.WriteString(errWrongArgType)
		return
	}
	out.WriteByte(b)
}

func writeString(v interface{}, width int) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		out.WriteString(errWrongArgType)
		return
	}
	if pad := width - len(s); pad > 0 {
		writeRepeated(' ', pad)
	}
	out.WriteString(s)
}

// intMagnitude extracts the absolute value and sign of every integer type
// Printf accepts, including the kernel's own address types.
func intMagnitude(v interface{}) (mag uint64, neg bool, ok bool) {
	switch t := v.(type) {
	case int:
		return signedMagnitude(int64(t))
	case int8:
		return signedMagnitude(int64(t))
	case int16:
		return signedMagnitude(int64(t))
	case int32:
		return signedMagnitude(int64(t))
	case int64:
		return signedMagnitude(t)
	case uint:
		return uint64(t), false, true
	case uint8:
		return uint64(t), false, true
	case uint16:
		return uint64(t), false, true
	case uint32:
		return uint64(t), false, true
	case uint64:
		return t, false, true
	case uintptr:
		return uint64(t), false, true
	case mem.PhysAddr:
		return uint64(t), false, true
	case mem.VirtAddr:
		return uint64(t), false, true
	default:
		return 0, false, false
	}
}

func signedMagnitude(v int64) (uint64, bool, bool) {
	if v < 0 {
		return uint64(-v), true, true
	}
	return uint64(v), false, true
}

// digitCount returns how many base-b digits v needs (at least 1, for v==0).
func digitCount(v, base uint64) int {
	n := 1
	for v >= base {
		v /= base
		n++
	}
	return n
}

// emitDigits writes v's base-b digits most-significant first by recursing
// down to the last digit before writing anything.
func emitDigits(v, base uint64, n int) {
	if n > 1 {
		emitDigits(v/base, base, n-1)
	}
	d := v % base
	if d < 10 {
		out.WriteByte('0' + byte(d))
	} else {
		out.WriteByte('a' + byte(d-10))
	}
}

// writeInt formats v in base (8, 10 or 16) padded to width: space-padded
// for base 10, zero-padded (after a "0x" prefix) for base 16, zero-padded
// with no prefix for base 8.
func writeInt(v interface{}, base, width int) {
	mag, neg, ok := intMagnitude(v)
	if !ok {
		out.WriteString(errWrongArgType)
		return
	}

	b := uint64(base)
	ndigits := digitCount(mag, b)
	signLen := 0
	if neg {
		signLen = 1
	}

	if base == 10 {
		if pad := width - ndigits - signLen; pad > 0 {
			writeRepeated(' ', pad)
		}
		if neg {
			out.WriteByte('-')
		}
		emitDigits(mag, b, ndigits)
		return
	}

	if neg {
		out.WriteByte('-')
	}
	if base == 16 {
		out.WriteString("0x")
	}
	if pad := width - ndigits - signLen; pad > 0 {
		writeRepeated('0', pad)
	}
	emitDigits(mag, b, ndigits)
}
