package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// AdvertiserConfig configures the mDNS advertiser.
type AdvertiserConfig struct {
	// ServerID is published in the TXT record.
	ServerID string

	// InstanceName is the DNS-SD instance name (default: "haptic-bridge").
	InstanceName string

	// APIPort is the advertised command port.
	APIPort int

	// Interface restricts advertising to one interface by name.
	// Empty means all interfaces.
	Interface string
}

// Advertiser publishes the bridge as a DNS-SD service over mDNS.
type Advertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an mDNS advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	if config.InstanceName == "" {
		config.InstanceName = "haptic-bridge"
	}
	return &Advertiser{config: config}
}

func (a *Advertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Start registers the service. A second Start replaces the existing
// registration.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	txt := []string{
		"server_id=" + a.config.ServerID,
		"api_version=" + APIVersion,
	}

	server, err := zeroconf.Register(
		a.config.InstanceName,
		ServiceType,
		Domain,
		a.config.APIPort,
		txt,
		a.interfaces(),
	)
	if err != nil {
		return fmt.Errorf("register mDNS service: %w", err)
	}

	a.server = server
	return nil
}

// Stop withdraws the service. Safe to call without a prior Start.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}
