package phomemo

// Command builders for the printer's ESC/POS-derived wire protocol.
// Every function returns a fresh slice; callers may append to or retain
// the result freely.

// Init builds ESC @ — reset printer state. Sent once at the head of
// every print job.
func Init() []byte {
	return []byte{ESC, '@'}
}

// StatusQuery builds GS g n — request an unsolicited status
// notification carrying the lid and paper flags.
func StatusQuery() []byte {
	return []byte{GS, 'g', 'n'}
}

// Feed builds ESC d n — advance the paper n lines. n is clamped to the
// single-byte range the printer accepts.
func Feed(lines int) []byte {
	if lines < 0 {
		lines = 0
	}
	if lines > 0xFF {
		lines = 0xFF
	}
	return []byte{ESC, 'd', byte(lines)}
}

// RasterHeader builds GS v 0 — begin one raster block of widthBytes
// packed bytes per row and rows rows. Both fields are 16-bit
// little-endian on the wire. The widthBytes field must equal the stride
// of the rows that follow; the printer cannot detect a mismatch and
// prints garbage if they disagree.
func RasterHeader(widthBytes, rows int) []byte {
	return []byte{
		GS, 'v', '0', 0x00,
		byte(widthBytes), byte(widthBytes >> 8),
		byte(rows), byte(rows >> 8),
	}
}
