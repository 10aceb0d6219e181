package frame

// DownlinkDecoder recovers downlink frames from a continuous byte stream.
//
// A checksum byte may legitimately equal the terminator, so a terminator is
// only treated as the end of a frame once the separator has been seen in
// position 1. Anything else before a terminator is garbage from a partially
// received frame and is discarded.
//
// A checksum byte may also equal the separator. Two separators in a row at
// the start of the buffer mean the first byte was garbage and the first
// separator is the checksum, as a payload never starts with a separator.
type DownlinkDecoder struct {
	buf     []byte
	maxSize int

	discarded int
}

// NewDownlinkDecoder creates a decoder which gives up on frames longer than
// maxSize bytes. A zero maxSize selects MaxDownlinkFrameSize.
func NewDownlinkDecoder(maxSize int) *DownlinkDecoder {
	if maxSize <= 0 {
		maxSize = MaxDownlinkFrameSize
	}
	return &DownlinkDecoder{maxSize: maxSize}
}

// Feed consumes one byte. When the byte completes a frame the raw frame
// (checksum, separator and payload, without the terminator) is returned
// together with true. The returned slice is only valid until the next call.
func (d *DownlinkDecoder) Feed(b byte) ([]byte, bool) {
	if b == Terminator && len(d.buf) >= 2 {
		if d.buf[1] == Separator {
			frame := d.buf
			d.buf = d.buf[:0]
			return frame, true
		}

		d.reset()
		return nil, false
	}

	if len(d.buf) == 1 && b != Separator {
		// the first byte was not a checksum, it may be one now
		d.discarded++
		d.buf[0] = b
		return nil, false
	}

	if len(d.buf) == 2 && d.buf[1] == Separator && b == Separator {
		d.discarded++
		d.buf[0] = Separator
		d.buf = d.buf[:1]
	}

	if len(d.buf) >= d.maxSize {
		d.reset()
	}

	d.buf = append(d.buf, b)
	return nil, false
}

// Discarded returns the number of bytes thrown away while resynchronizing
func (d *DownlinkDecoder) Discarded() int {
	return d.discarded
}

func (d *DownlinkDecoder) reset() {
	d.discarded += len(d.buf)
	d.buf = d.buf[:0]
}
