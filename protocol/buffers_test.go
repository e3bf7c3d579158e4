package protocol

import (
	"bytes"
	"testing"
)

func drain(f *FifoBuffer) []byte {
	out := make([]byte, f.Available())
	return out[:f.Read(out)]
}

func discard(f *FifoBuffer, n int) {
	f.Read(make([]byte, n))
}

func TestFifoBufferKeepsOneSlotFree(t *testing.T) {
	fifo := NewFifoBuffer(10)
	if !fifo.IsEmpty() || fifo.Available() != 0 {
		t.Fatalf("Expected an empty buffer, got %d available", fifo.Available())
	}

	written := fifo.Write([]byte("HTTP/1.1 200 OK\r\n"))
	if written != 9 {
		t.Errorf("Expected 9 bytes stored in a size-10 buffer, got %d", written)
	}
	if fifo.Free() != 0 {
		t.Errorf("Expected a full buffer, got %d free", fifo.Free())
	}
	if n := fifo.Write([]byte("x")); n != 0 {
		t.Errorf("Expected a full buffer to refuse writes, stored %d", n)
	}
}

func TestFifoBufferStatusLineAcrossWrap(t *testing.T) {
	fifo := NewFifoBuffer(16)

	// Leave the read position near the end so the line wraps.
	fifo.Write(bytes.Repeat([]byte{'.'}, 12))
	discard(fifo, 12)

	fifo.Write([]byte("HTTP/1.1 "))
	if idx := fifo.IndexByte('\n'); idx != -1 {
		t.Errorf("Expected no line end yet, got offset %d", idx)
	}
	fifo.Write([]byte("204\r\n"))

	idx := fifo.IndexByte('\n')
	if idx != 13 {
		t.Fatalf("Expected line end at offset 13, got %d", idx)
	}
	line := make([]byte, idx+1)
	if n := fifo.Read(line); n != idx+1 {
		t.Fatalf("Expected to read %d bytes, read %d", idx+1, n)
	}
	if string(line) != "HTTP/1.1 204\r\n" {
		t.Errorf("Expected status line, got %q", line)
	}
	if !fifo.IsEmpty() {
		t.Errorf("Expected buffer drained, %d bytes left", fifo.Available())
	}
}

func TestFifoBufferChunkedFragments(t *testing.T) {
	fifo := NewFifoBuffer(8)
	body := []byte("5\r\nHola \r\n3\r\nque\r\n0\r\n\r\n")

	var got []byte
	for pos := 0; pos < len(body); {
		pos += fifo.Write(body[pos:min(pos+3, len(body))])
		out := make([]byte, 2)
		n := fifo.Read(out)
		got = append(got, out[:n]...)
	}
	got = append(got, drain(fifo)...)

	if !bytes.Equal(got, body) {
		t.Errorf("Expected bytes in order, got %q", got)
	}
}

func TestFifoBufferIndexAfterWrap(t *testing.T) {
	fifo := NewFifoBuffer(6)
	fifo.Write([]byte("abc"))
	discard(fifo, 2)
	fifo.Write([]byte("d\nx"))

	if idx := fifo.IndexByte('\n'); idx != 2 {
		t.Errorf("Expected newline at offset 2, got %d", idx)
	}
	if idx := fifo.IndexByte('z'); idx != -1 {
		t.Errorf("Expected -1 for missing byte, got %d", idx)
	}
	if got := drain(fifo); string(got) != "cd\nx" {
		t.Errorf("Expected %q, got %q", "cd\nx", got)
	}
	if !fifo.IsEmpty() || fifo.Free() != 5 {
		t.Errorf("Expected drained buffer, got %d available %d free", fifo.Available(), fifo.Free())
	}
}
