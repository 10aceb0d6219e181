package frame

// Wire layout shared by both link directions.
//
//	Downlink: Checksum(1) | Separator(1) | Payload(n) | Terminator(1)
//	Uplink:   Code(1)     | Checksum(1)  | Separator(1)
const (
	Separator  = 0x20 // ASCII space
	Terminator = 0x0A // ASCII line feed

	// Polynomial is the CRC-8 generator shared by the downlink, the uplink
	// and the camera control link
	Polynomial = 0xD5

	UplinkSize = 3

	// downlinkOverhead is checksum, separator and terminator
	downlinkOverhead = 3

	// MaxDownlinkFrameSize bounds the ground side accumulator. A frame longer
	// than this cannot be a telemetry frame and forces resynchronization.
	MaxDownlinkFrameSize = 4096

	// bitsPerByte is the on-air cost of one byte used to size payloads (8N1
	// costs ten bits, the radio firmware packs it into roughly nine)
	bitsPerByte = 9
)
