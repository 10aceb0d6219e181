package frame

// Checksum calculates the CRC-8 of p: zero initial value, polynomial 0xD5,
// MSB first, no reflection and no final XOR.
func Checksum(p []byte) byte {
	var crc byte
	for _, b := range p {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ Polynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
