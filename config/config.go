// Package config assembles the plain Go structs that describe a router's
// interfaces and routes. There is no file format, no flags, and no
// environment variables: a host embeds this module by constructing these
// structs programmatically and driving the core from them.
package config

import (
	"net/netip"

	"github.com/google/netstack/tcpip"
	"github.com/pkg/errors"

	"tcpstack/netiface"
	"tcpstack/router"
)

// InterfaceConfig describes one NetworkInterface to bring up.
type InterfaceConfig struct {
	Name    string
	EthAddr tcpip.LinkAddress
	IPAddr  netip.Addr
}

// RouteConfig describes one static route to install once all interfaces
// named by InterfaceName have been constructed.
type RouteConfig struct {
	Prefix        netip.Addr
	PrefixLength  int
	NextHop       netip.Addr
	HasNextHop    bool
	InterfaceName string
}

// RouterConfig is the full static description of a Router: its interfaces
// and its route table, in the order they should be added (insertion order
// is significant — see §4.7's first-inserted tie-break).
type RouterConfig struct {
	Interfaces []InterfaceConfig
	Routes     []RouteConfig
}

// Validate checks the configuration is internally consistent: interface
// names are unique and every route's InterfaceName resolves to a declared
// interface. This is configuration-time validation, not a core operation,
// so it returns a wrapped error rather than dropping silently (§7).
func (c RouterConfig) Validate() error {
	seen := make(map[string]bool, len(c.Interfaces))
	for _, iface := range c.Interfaces {
		if seen[iface.Name] {
			return errors.Errorf("config: duplicate interface name %q", iface.Name)
		}
		if !iface.IPAddr.Is4() {
			return errors.Errorf("config: interface %q: IPv4 address required", iface.Name)
		}
		seen[iface.Name] = true
	}
	for i, route := range c.Routes {
		if !seen[route.InterfaceName] {
			return errors.Wrapf(errNoSuchInterface(route.InterfaceName), "config: route %d", i)
		}
		if route.PrefixLength < 0 || route.PrefixLength > 32 {
			return errors.Errorf("config: route %d: invalid prefix length %d", i, route.PrefixLength)
		}
	}
	return nil
}

func errNoSuchInterface(name string) error {
	return errors.Errorf("no interface named %q", name)
}

// Build validates c and constructs a fully wired router.Router: one
// netiface.AsyncNetworkInterface per InterfaceConfig, and the route table
// added in the configured order. This is the module's one config-to-stack
// loading step (the lineage's analogous step parses a .lnx file into an
// Interfaces/Neighbors structure; the file-parsing half is out of scope).
func (c RouterConfig) Build() (*router.Router, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	r := router.New()
	indexByName := make(map[string]int, len(c.Interfaces))
	for _, ifaceCfg := range c.Interfaces {
		ni, err := netiface.New(netiface.Config{
			Name:    ifaceCfg.Name,
			EthAddr: ifaceCfg.EthAddr,
			IPAddr:  ifaceCfg.IPAddr,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "config: interface %q", ifaceCfg.Name)
		}
		indexByName[ifaceCfg.Name] = r.AddInterface(netiface.NewAsync(ni))
	}

	for i, routeCfg := range c.Routes {
		err := r.AddRoute(router.Route{
			Prefix:       routeCfg.Prefix,
			PrefixLength: routeCfg.PrefixLength,
			NextHop:      routeCfg.NextHop,
			HasNextHop:   routeCfg.HasNextHop,
			IfaceIndex:   indexByName[routeCfg.InterfaceName],
		})
		if err != nil {
			return nil, errors.Wrapf(err, "config: route %d", i)
		}
	}
	return r, nil
}
