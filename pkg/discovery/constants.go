package discovery

import "github.com/haptic-bridge/haptic-go/pkg/version"

// Protocol constants shared by the server and its clients.
const (
	// DefaultCommandPort is the UDP port the command listener binds.
	DefaultCommandPort = 9128

	// DefaultDiscoveryPort is the UDP port the discovery responder
	// binds.
	DefaultDiscoveryPort = 9129

	// Phrase is the exact broadcast payload that triggers a discovery
	// response. Anything else is ignored.
	Phrase = "UNITY_HAPTICS_DISCOVERY_REQUEST"

	// ResponseMarker identifies a discovery response as coming from
	// this server.
	ResponseMarker = "UNITY_HAPTICS_SERVER"

	// MaxPacketSize is the largest datagram either side will send.
	MaxPacketSize = 8192

	// APIVersion is the protocol version reported in discovery
	// responses and status snapshots.
	APIVersion = version.Current

	// ServiceType is the DNS-SD service type used for mDNS
	// advertisement.
	ServiceType = "_haptics._udp"

	// Domain is the mDNS domain.
	Domain = "local."
)
