package modbus

// adu is a wire-independent application data unit: the server address
// the framing codec carries out-of-band from the PDU (RTU/ASCII put it
// in the frame itself; MBAP carries it as the "unit id" trailing byte
// of its header) plus the PDU itself.
type adu struct {
	serverAddress ServerAddress
	pdu           pdu
}
