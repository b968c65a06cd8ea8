package console

import "testing"

func TestPL011WriteString(t *testing.T) {
	defer func() {
		waitFn = nil
		writeFn = nil
	}()

	var (
		waitCalls int
		written   []byte
	)
	waitFn = func(addr uintptr, mask, want uint32) { waitCalls++ }
	writeFn = func(addr uintptr, value uint32) { written = append(written, byte(value)) }

	u := NewPL011(0x09000000)
	u.WriteString("hi")

	if waitCalls != 2 {
		t.Fatalf("expected the flag register to be polled once per byte; got %d calls", waitCalls)
	}
	if string(written) != "hi" {
		t.Fatalf("expected %q written to the data register; got %q", "hi", written)
	}
}

var _ Writer = (*PL011)(nil)
