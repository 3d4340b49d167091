// Package discovery makes the bridge findable on the local network.
//
// Two mechanisms are provided. The Responder answers UDP broadcast
// probes carrying the discovery phrase with a JSON identity that names
// the command port; this is the primary path for game-engine clients.
// The Advertiser additionally publishes the service over mDNS for
// tooling that browses DNS-SD.
package discovery
