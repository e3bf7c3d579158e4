package protocol

// FifoBuffer is a circular receive buffer between a Stream and the
// response parser. One slot is kept free to tell full from empty.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends as much of data as fits and returns the count stored
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for written < len(data) && f.Free() > 0 {
		end := f.size
		if f.read > f.write {
			end = f.read - 1
		} else if f.read == 0 {
			end = f.size - 1
		}
		n := copy(f.buf[f.write:end], data[written:])
		written += n
		f.write = (f.write + n) % f.size
	}
	return written
}

// Read reads up to len(data) bytes from the FIFO buffer
func (f *FifoBuffer) Read(data []byte) int {
	read := 0
	for read < len(data) && f.read != f.write {
		end := f.write
		if f.write < f.read {
			end = f.size
		}
		n := copy(data[read:], f.buf[f.read:end])
		read += n
		f.read = (f.read + n) % f.size
	}
	return read
}

// IndexByte returns the offset of the first c from the read position, or -1
func (f *FifoBuffer) IndexByte(c byte) int {
	for i, pos := 0, f.read; pos != f.write; i, pos = i+1, (pos+1)%f.size {
		if f.buf[pos] == c {
			return i
		}
	}
	return -1
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}
