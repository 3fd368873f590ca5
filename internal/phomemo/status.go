package phomemo

import "errors"

// Status holds the printer condition decoded from one unsolicited
// notification. It carries no history: each notification supersedes the
// previous one entirely.
type Status struct {
	LidOpen      bool
	PaperPresent bool
}

// Notification flag bits in byte 2 of a status payload. The paper bit
// is a paper-out flag: set means the paper roll is absent.
const (
	statusBitLidOpen  = 1 << 0
	statusBitPaperOut = 1 << 4
)

// ErrNotStatus is returned for notification payloads that are not
// status reports (wrong marker or too short to carry the flag byte).
var ErrNotStatus = errors.New("phomemo: not a status notification")

// DecodeStatus decodes an unsolicited status notification. Payload
// layout: byte 0 = 0x1A marker, byte 2 = flag bits.
func DecodeStatus(data []byte) (Status, error) {
	if len(data) < 3 || data[0] != StatusMarker {
		return Status{}, ErrNotStatus
	}
	return Status{
		LidOpen:      data[2]&statusBitLidOpen != 0,
		PaperPresent: data[2]&statusBitPaperOut == 0,
	}, nil
}

// Problem returns a short user-facing description of the most pressing
// condition, or "" when the printer is ready. An open lid outranks
// missing paper: the paper sensor reads unreliably while the lid is up.
func (s Status) Problem() string {
	switch {
	case s.LidOpen:
		return "lid open"
	case !s.PaperPresent:
		return "out of paper"
	default:
		return ""
	}
}
