package modbus

// lrc computes the ASCII-mode longitudinal redundancy check: the
// eight-bit two's complement of the sum of all bytes, modulo 256.
type lrc struct {
	sum uint8
}

// init (re)starts the LRC computation.
func (l *lrc) init() {
	l.sum = 0
	return
}

// add folds len(data) bytes into the running sum.
func (l *lrc) add(data []byte) {
	for _, b := range data {
		l.sum += b
	}
	return
}

// value returns the current LRC byte.
func (l *lrc) value() (out byte) {
	out = byte(-int8(l.sum))
	return
}

// isEqual reports whether the current LRC matches b.
func (l *lrc) isEqual(b byte) (ok bool) {
	ok = l.value() == b
	return
}
