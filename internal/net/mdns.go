package net

import (
	"fmt"
	"os"

	"github.com/hashicorp/mdns"
)

const serviceType = "_layerboard._tcp"

// Advertise announces a hosted room on the local network so peers can
// join without typing an address. The caller shuts the returned
// server down when the room closes.
func Advertise(room string, port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(
		host,
		serviceType,
		"",
		"",
		port,
		nil,
		[]string{room},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse looks up advertised rooms and invokes found with each
// joinable "ip:port" address.
func Browse(found func(addr, room string)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	go func() {
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			room := ""
			if len(e.InfoFields) > 0 {
				room = e.InfoFields[0]
			}
			found(fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port), room)
		}
	}()
	return mdns.Lookup(serviceType, entries)
}
