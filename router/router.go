// Package router implements longest-prefix-match forwarding of IPv4
// datagrams across a set of owned network interfaces.
package router

import (
	"net/netip"

	ipv4header "github.com/brown-csci1680/iptcp-headers"
	"github.com/google/netstack/tcpip/header"
	"github.com/pkg/errors"
	"github.com/tmthrgd/go-popcount"

	"tcpstack/netiface"
)

// Route is one entry in the statically populated forwarding table. NextHop
// is absent for directly attached routes, where the datagram's own
// destination is used as the next hop.
type Route struct {
	Prefix       netip.Addr
	PrefixLength int
	NextHop      netip.Addr
	HasNextHop   bool
	IfaceIndex   int
}

// Router owns a set of interfaces and forwards datagrams between them by
// longest-prefix match on destination address. Not safe for concurrent use
// (§5); it is driven single-threadedly by the host via Route.
type Router struct {
	ifaces []*netiface.AsyncNetworkInterface
	routes []Route
}

// New constructs a Router with no interfaces and an empty route table.
func New() *Router {
	return &Router{}
}

// AddInterface registers an interface and returns its index, used as a
// route's IfaceIndex when adding routes via AddRoute.
func (r *Router) AddInterface(ni *netiface.AsyncNetworkInterface) int {
	r.ifaces = append(r.ifaces, ni)
	return len(r.ifaces) - 1
}

// AddRoute appends a route to the table. Routes are matched in longest-
// prefix order with ties broken toward the first inserted (§4.7), so
// insertion order is significant and this method never reorders existing
// entries.
func (r *Router) AddRoute(route Route) error {
	if route.PrefixLength < 0 || route.PrefixLength > 32 {
		return errors.Errorf("router: invalid prefix length %d", route.PrefixLength)
	}
	if route.IfaceIndex < 0 || route.IfaceIndex >= len(r.ifaces) {
		return errors.Errorf("router: no interface at index %d", route.IfaceIndex)
	}
	r.routes = append(r.routes, route)
	return nil
}

// AddRouteFromMask appends a route described by a raw subnet mask rather
// than an explicit prefix length. The mask must be a contiguous run of set
// high bits; the number of set bits becomes the route's prefix length.
func (r *Router) AddRouteFromMask(prefix netip.Addr, mask [4]byte, nextHop netip.Addr, hasNextHop bool, ifaceIndex int) error {
	bits := int(popcount.CountBytes(mask[:]))
	if !isContiguousMask(mask) {
		return errors.Errorf("router: mask %v is not a contiguous run of set bits", mask)
	}
	return r.AddRoute(Route{
		Prefix:       prefix,
		PrefixLength: bits,
		NextHop:      nextHop,
		HasNextHop:   hasNextHop,
		IfaceIndex:   ifaceIndex,
	})
}

func isContiguousMask(mask [4]byte) bool {
	seenZero := false
	for _, b := range mask {
		for bit := 7; bit >= 0; bit-- {
			set := b&(1<<uint(bit)) != 0
			if set && seenZero {
				return false
			}
			if !set {
				seenZero = true
			}
		}
	}
	return true
}

// RouteDatagram applies TTL/checksum policy and forwards dgramBytes to the
// longest-prefix-matching interface, if any. Drops silently (§7) on TTL
// expiry, malformed header, or no matching route — this never returns an
// error, unlike AddRoute.
func (r *Router) RouteDatagram(dgramBytes []byte) {
	hdr, err := ipv4header.ParseHeader(dgramBytes)
	if err != nil {
		return
	}
	if hdr.TTL <= 1 {
		return
	}
	hdr.TTL--
	hdr.Checksum = 0
	headerBytes, err := hdr.Marshal()
	if err != nil {
		return
	}
	checksum := header.Checksum(headerBytes, 0)
	hdr.Checksum = int(checksum ^ 0xffff)
	headerBytes, err = hdr.Marshal()
	if err != nil {
		return
	}
	copy(dgramBytes, headerBytes)

	route, ok := r.longestMatch(hdr.Dst)
	if !ok {
		return
	}

	nextHop := hdr.Dst
	if route.HasNextHop {
		nextHop = route.NextHop
	}
	r.ifaces[route.IfaceIndex].SendDatagram(dgramBytes, nextHop)
}

func (r *Router) longestMatch(dst netip.Addr) (Route, bool) {
	best := -1
	var bestRoute Route
	for _, route := range r.routes {
		if !prefixMatches(route.Prefix, route.PrefixLength, dst) {
			continue
		}
		if route.PrefixLength > best {
			best = route.PrefixLength
			bestRoute = route
		}
	}
	return bestRoute, best >= 0
}

// prefixMatches reports whether the top length bits of prefix and addr
// agree. Length 0 matches everything.
func prefixMatches(prefix netip.Addr, length int, addr netip.Addr) bool {
	if length == 0 {
		return true
	}
	p, ok1 := as32(prefix)
	a, ok2 := as32(addr)
	if !ok1 || !ok2 {
		return false
	}
	mask := ^uint32(0) << uint(32-length)
	return p&mask == a&mask
}

func as32(addr netip.Addr) (uint32, bool) {
	if !addr.Is4() {
		return 0, false
	}
	b := addr.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), true
}

// Route drains every interface's pending inbound datagrams and forwards
// each one. One pass over all interfaces; call repeatedly from the host's
// event loop.
func (r *Router) Route() {
	for _, ni := range r.ifaces {
		for {
			dgram, ok := ni.MaybeReceive()
			if !ok {
				break
			}
			r.RouteDatagram(dgram)
		}
	}
}

// Tick advances every owned interface's clock by ms.
func (r *Router) Tick(ms int64) {
	for _, ni := range r.ifaces {
		ni.Tick(ms)
	}
}
