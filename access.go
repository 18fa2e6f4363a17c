package modbus

// BitValue is the decoded state of a single coil or discrete input.
type BitValue uint

const (
	Off      BitValue = 0
	On       BitValue = 1
	BadValue BitValue = 2
)

// SingleBitAccess is a typed view over a contiguous range of coils or
// discrete inputs, [StartAddress, StartAddress+Quantity). It marshals
// read/write requests and unmarshals read responses into a sparse
// address->BitValue map.
type SingleBitAccess struct {
	startAddress Address
	quantity     Quantity
	values       map[Address]BitValue
}

// NewSingleBitAccess returns an access object covering quantity
// consecutive coils/discrete inputs starting at startAddress.
func NewSingleBitAccess(startAddress Address, quantity Quantity) (access *SingleBitAccess) {
	access = &SingleBitAccess{
		startAddress: startAddress,
		quantity:     quantity,
		values:       make(map[Address]BitValue),
	}

	return
}

func (a *SingleBitAccess) StartAddress() (addr Address) {
	addr = a.startAddress
	return
}

func (a *SingleBitAccess) Quantity() (q Quantity) {
	q = a.quantity
	return
}

// SetValue records the bit value for a single write request/response.
func (a *SingleBitAccess) SetValue(value BitValue) {
	a.values[a.startAddress] = value
	return
}

// SetValueAt records the bit value for address, used when building a
// multiple-write request or decoding a read response.
func (a *SingleBitAccess) SetValueAt(address Address, value BitValue) {
	a.values[address] = value
	return
}

// Value returns the decoded value at address, or BadValue if address
// falls outside the range this access object covers or was never set.
func (a *SingleBitAccess) Value(address Address) (value BitValue) {
	var ok bool

	value, ok = a.values[address]
	if !ok {
		value = BadValue
	}

	return
}

// Values returns the decoded values for the whole range, in address
// order, substituting BadValue for any address that was never set.
func (a *SingleBitAccess) Values() (values []BitValue) {
	var i Quantity

	for i = 0; i < a.quantity; i++ {
		values = append(values, a.Value(a.startAddress+Address(i)))
	}

	return
}

// MarshalReadRequest returns the 4-byte data portion of a read coils /
// read discrete inputs request: start address, quantity.
func (a *SingleBitAccess) MarshalReadRequest() (data []byte) {
	data = uint16ToBytes(BigEndian, uint16(a.startAddress))
	data = append(data, uint16ToBytes(BigEndian, uint16(a.quantity))...)

	return
}

// MarshalSingleWriteRequest returns the 4-byte data portion of a write
// single coil request: address, value (0xff00 for On, 0x0000 for Off).
func (a *SingleBitAccess) MarshalSingleWriteRequest() (data []byte) {
	var value uint16

	if a.Value(a.startAddress) == On {
		value = 0xff00
	}

	data = uint16ToBytes(BigEndian, uint16(a.startAddress))
	data = append(data, uint16ToBytes(BigEndian, value)...)

	return
}

// MarshalMultipleWriteRequest returns the data portion of a write
// multiple coils request: start address, quantity, byte count, then the
// packed bits themselves (LSB-first within each byte, low address
// first, unused high bits zero).
func (a *SingleBitAccess) MarshalMultipleWriteRequest() (data []byte) {
	var byteCount int
	var packed []byte
	var i Quantity

	byteCount = (int(a.quantity) + 7) / 8
	packed = make([]byte, byteCount)

	for i = 0; i < a.quantity; i++ {
		if a.Value(a.startAddress+Address(i)) == On {
			packed[i/8] |= 0x01 << (i % 8)
		}
	}

	data = uint16ToBytes(BigEndian, uint16(a.startAddress))
	data = append(data, uint16ToBytes(BigEndian, uint16(a.quantity))...)
	data = append(data, byte(byteCount))
	data = append(data, packed...)

	return
}

// UnmarshalReadResponse decodes the data portion of a read coils / read
// discrete inputs response: a leading byte count followed by the packed
// bits, in the same order MarshalMultipleWriteRequest produces them.
func (a *SingleBitAccess) UnmarshalReadResponse(data []byte) (err error) {
	var byteCount int
	var i Quantity

	if len(data) < 1 {
		err = ErrProtocolError
		return
	}

	byteCount = int(data[0])
	if len(data) != 1+byteCount {
		err = ErrProtocolError
		return
	}

	for i = 0; i < a.quantity; i++ {
		var value BitValue

		if int(i/8)+1 > byteCount {
			value = BadValue
		} else if (data[1+i/8]>>(i%8))&0x01 == 0x01 {
			value = On
		} else {
			value = Off
		}

		a.SetValueAt(a.startAddress+Address(i), value)
	}

	return
}

// SixteenBitValue is the decoded value of a single 16-bit register;
// ToUint16 returns it as a plain uint16.
type SixteenBitValue uint16

func (v SixteenBitValue) ToUint16() uint16 {
	return uint16(v)
}

// SixteenBitAccess is a typed view over a contiguous range of 16-bit
// registers, analogous to SingleBitAccess.
type SixteenBitAccess struct {
	startAddress Address
	quantity     Quantity
	endianness   Endianness
	values       map[Address]uint16

	// only used by read/write multiple registers (FC 23): the write
	// sub-range is independent of the read sub-range.
	writeStartAddress Address
	writeQuantity     Quantity
}

// NewSixteenBitAccess returns an access object covering quantity
// consecutive registers starting at startAddress, with big-endian
// value encoding.
func NewSixteenBitAccess(startAddress Address, quantity Quantity) (access *SixteenBitAccess) {
	access = &SixteenBitAccess{
		startAddress: startAddress,
		quantity:     quantity,
		endianness:   BigEndian,
		values:       make(map[Address]uint16),
	}

	return
}

func (a *SixteenBitAccess) StartAddress() (addr Address) {
	addr = a.startAddress
	return
}

func (a *SixteenBitAccess) Quantity() (q Quantity) {
	q = a.quantity
	return
}

// SetEndianness controls how register value bytes (not addresses,
// quantities or byte counts) are packed/unpacked.
func (a *SixteenBitAccess) SetEndianness(endianness Endianness) {
	a.endianness = endianness
	return
}

func (a *SixteenBitAccess) SetValue(value uint16) {
	a.values[a.startAddress] = value
	return
}

func (a *SixteenBitAccess) SetValueAt(address Address, value uint16) {
	a.values[address] = value
	return
}

func (a *SixteenBitAccess) Value(address Address) (value SixteenBitValue, ok bool) {
	var v uint16

	v, ok = a.values[address]
	value = SixteenBitValue(v)

	return
}

// Values returns the decoded register values in address order, skipping
// any address that was never set.
func (a *SixteenBitAccess) Values() (values []SixteenBitValue) {
	var i Quantity

	for i = 0; i < a.quantity; i++ {
		var v SixteenBitValue
		var ok bool

		v, ok = a.Value(a.startAddress + Address(i))
		if !ok {
			continue
		}

		values = append(values, v)
	}

	return
}

// MarshalReadRequest returns the 4-byte data portion of a read
// holding/input registers request: start address, quantity.
func (a *SixteenBitAccess) MarshalReadRequest() (data []byte) {
	data = uint16ToBytes(BigEndian, uint16(a.startAddress))
	data = append(data, uint16ToBytes(BigEndian, uint16(a.quantity))...)

	return
}

// MarshalSingleWriteRequest returns the 4-byte data portion of a write
// single register request: address, value.
func (a *SixteenBitAccess) MarshalSingleWriteRequest() (data []byte) {
	value, _ := a.Value(a.startAddress)

	data = uint16ToBytes(BigEndian, uint16(a.startAddress))
	data = append(data, uint16ToBytes(a.endianness, value.ToUint16())...)

	return
}

// MarshalMultipleWriteRequest returns the data portion of a write
// multiple registers request: start address, quantity, byte count
// (2*quantity), then the register values themselves.
func (a *SixteenBitAccess) MarshalMultipleWriteRequest() (data []byte) {
	var i Quantity
	var raw []uint16

	for i = 0; i < a.quantity; i++ {
		value, _ := a.Value(a.startAddress + Address(i))
		raw = append(raw, value.ToUint16())
	}
	values := uint16sToBytes(a.endianness, raw)

	data = uint16ToBytes(BigEndian, uint16(a.startAddress))
	data = append(data, uint16ToBytes(BigEndian, uint16(a.quantity))...)
	data = append(data, byte(len(values)))
	data = append(data, values...)

	return
}

// MarshalReadWriteRequest returns the data portion of a read/write
// multiple registers (FC 23) request: the read range (4 bytes), then
// the write range (start, quantity, byte count, values), with the write
// values taken from a's own value map over [writeStartAddress,
// writeStartAddress+writeQuantity).
func (a *SixteenBitAccess) MarshalReadWriteRequest() (data []byte) {
	var i Quantity
	var raw []uint16

	data = uint16ToBytes(BigEndian, uint16(a.startAddress))
	data = append(data, uint16ToBytes(BigEndian, uint16(a.quantity))...)

	for i = 0; i < a.writeQuantity; i++ {
		value, _ := a.Value(a.writeStartAddress + Address(i))
		raw = append(raw, value.ToUint16())
	}
	values := uint16sToBytes(a.endianness, raw)

	data = append(data, uint16ToBytes(BigEndian, uint16(a.writeStartAddress))...)
	data = append(data, uint16ToBytes(BigEndian, uint16(a.writeQuantity))...)
	data = append(data, byte(len(values)))
	data = append(data, values...)

	return
}

// SetWriteRange configures the write sub-range used by
// MarshalReadWriteRequest; the values written must already be present
// in a's value map (via SetValueAt) before marshalling.
func (a *SixteenBitAccess) SetWriteRange(startAddress Address, quantity Quantity) {
	a.writeStartAddress = startAddress
	a.writeQuantity = quantity

	return
}

// UnmarshalReadResponse decodes the data portion of a read
// holding/input registers response (and, identically, a read/write
// multiple registers response): a leading byte count followed by
// 2*quantity bytes of register values.
func (a *SixteenBitAccess) UnmarshalReadResponse(data []byte) (err error) {
	var byteCount int
	var i Quantity

	if len(data) < 1 {
		err = ErrProtocolError
		return
	}

	byteCount = int(data[0])
	if len(data) != 1+byteCount || byteCount != 2*int(a.quantity) {
		err = ErrProtocolError
		return
	}

	raw := bytesToUint16s(a.endianness, data[1:])
	for i = 0; i < a.quantity; i++ {
		a.SetValueAt(a.startAddress+Address(i), raw[i])
	}

	return
}
