package phomemo

import (
	"strings"
	"time"
)

// BLE endpoint identifiers. One service groups a write characteristic
// (unacknowledged byte writes toward the printer) and a notify
// characteristic (unsolicited status payloads from the printer).
const (
	ServiceUUID    = "0000ff00-0000-1000-8000-00805f9b34fb"
	WriteCharUUID  = "0000ff02-0000-1000-8000-00805f9b34fb"
	NotifyCharUUID = "0000ff03-0000-1000-8000-00805f9b34fb"
)

// Print head geometry. The paper is 58 mm wide with a 384-dot printable
// area; every raster row is exactly 48 packed bytes.
const (
	PrintWidthDots  = 384
	PrintWidthBytes = PrintWidthDots / 8
)

// Command lead-in bytes.
const (
	ESC = 0x1B
	GS  = 0x1D
)

// StatusMarker is the first byte of an unsolicited status notification.
const StatusMarker = 0x1A

// Transfer tuning. The link has no flow-control signal from the printer,
// so the frame delay is the only guard against overrunning its receive
// buffer; the value is empirical, not derived from a datasheet.
const (
	MaxFrameRows      = 100
	DefaultFrameDelay = 40 * time.Millisecond
	DefaultFeedLines  = 4
	HeartbeatInterval = 30 * time.Second
)

// productNames are the advertised-name substrings that identify a
// compatible printer during discovery.
var productNames = []string{"T02", "M02", "Phomemo"}

// MatchName reports whether an advertised device name belongs to a
// supported printer.
func MatchName(name string) bool {
	for _, p := range productNames {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}
