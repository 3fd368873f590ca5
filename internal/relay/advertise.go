package relay

import (
	"fmt"

	"github.com/grandcat/zeroconf"

	"github.com/matheusdanoite/phomemo-go/internal/phomemo"
)

// Advertise registers the relay on mDNS so clients can find it without
// knowing the host address. Shut the returned server down on exit.
func Advertise(instanceName string, port int) (*zeroconf.Server, error) {
	return zeroconf.Register(
		instanceName,
		"_phomemo-relay._tcp",
		"local.",
		port,
		[]string{
			"txtvers=1",
			"ty=" + instanceName,
			fmt.Sprintf("width=%d", phomemo.PrintWidthDots),
			"formats=image/png,image/jpeg,image/gif,image/webp",
		},
		nil,
	)
}
