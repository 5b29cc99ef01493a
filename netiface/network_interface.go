// Package netiface implements the link-layer adapter between an IPv4
// datagram source and an Ethernet-framed device: it resolves next-hop
// Ethernet addresses via ARP, queues datagrams pending resolution, and
// parses inbound frames back into IPv4 datagrams.
package netiface

import (
	"log/slog"
	"net/netip"

	ipv4header "github.com/brown-csci1680/iptcp-headers"
	"github.com/google/netstack/tcpip"
	"github.com/google/netstack/tcpip/header"
	"github.com/pkg/errors"
)

// ARPRequestTimeout bounds how long an outstanding ARP request is honored
// before a send to the same target is allowed to re-broadcast.
const ARPRequestTimeout = 5000 // ms

// AddressCacheTTL bounds how long a resolved ARP cache entry is trusted.
const AddressCacheTTL = 30000 // ms

// pendingQueueCap is the recommended cap on per-target queued datagrams
// awaiting ARP resolution (§5 resource model).
const pendingQueueCap = 8

// BroadcastEthernetAddr is the link-layer broadcast address.
var BroadcastEthernetAddr = tcpip.LinkAddress([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff})

type arpCacheEntry struct {
	addr     tcpip.LinkAddress
	expireMs int64
}

// Config describes the addresses a NetworkInterface binds to. Validated at
// construction time only; the core operations never return errors.
type Config struct {
	Name        string
	EthAddr     tcpip.LinkAddress
	IPAddr      netip.Addr
	Logger      *slog.Logger // optional, defaults to slog.Default()
}

// NetworkInterface wraps one IPv4-capable device: it serializes outgoing
// datagrams into Ethernet frames, resolves next-hop Ethernet addresses via
// ARP, and parses incoming frames into IPv4 datagrams. Not safe for
// concurrent use: its pending-datagram queues and ARP tables are mutated
// only by its own methods, driven single-threadedly by the host (§5).
type NetworkInterface struct {
	name    string
	ethAddr tcpip.LinkAddress
	ipAddr  netip.Addr
	log     *slog.Logger

	nowMs int64

	arpCache        map[netip.Addr]arpCacheEntry
	pendingRequests map[netip.Addr]int64 // target -> expiry of the outstanding request
	pendingDgrams   map[netip.Addr][][]byte

	outbound [][]byte // serialized Ethernet frames ready for maybe_send
}

// New constructs a NetworkInterface bound to the given addresses.
func New(cfg Config) (*NetworkInterface, error) {
	if !cfg.IPAddr.Is4() {
		return nil, errors.Errorf("netiface: %s: IPv4 address required, got %v", cfg.Name, cfg.IPAddr)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &NetworkInterface{
		name:            cfg.Name,
		ethAddr:         cfg.EthAddr,
		ipAddr:          cfg.IPAddr,
		log:             log,
		arpCache:        make(map[netip.Addr]arpCacheEntry),
		pendingRequests: make(map[netip.Addr]int64),
		pendingDgrams:   make(map[netip.Addr][][]byte),
	}, nil
}

// Name returns the interface's configured name.
func (ni *NetworkInterface) Name() string { return ni.name }

// IPAddr returns the interface's bound IPv4 address.
func (ni *NetworkInterface) IPAddr() netip.Addr { return ni.ipAddr }

// SendDatagram serializes dgram (already TTL-decremented and checksummed by
// the caller) toward nextHop: unicast immediately if the Ethernet address is
// cached, otherwise queued pending ARP resolution.
func (ni *NetworkInterface) SendDatagram(dgramBytes []byte, nextHop netip.Addr) {
	if entry, ok := ni.arpCache[nextHop]; ok && entry.expireMs > ni.nowMs {
		ni.outbound = append(ni.outbound, ni.frameEthernet(entry.addr, header.IPv4ProtocolNumber, dgramBytes))
		return
	}

	ni.enqueuePending(nextHop, dgramBytes)

	if expiry, requested := ni.pendingRequests[nextHop]; requested && expiry > ni.nowMs {
		return // already have an unexpired request outstanding
	}
	ni.pendingRequests[nextHop] = ni.nowMs + ARPRequestTimeout
	ni.outbound = append(ni.outbound, ni.buildARPRequest(nextHop))
	ni.log.Debug("ARP: request sent", slog.String("iface", ni.name), slog.String("target", nextHop.String()))
}

func (ni *NetworkInterface) enqueuePending(target netip.Addr, dgramBytes []byte) {
	q := ni.pendingDgrams[target]
	if len(q) >= pendingQueueCap {
		q = q[1:] // drop the oldest to admit the new one
	}
	ni.pendingDgrams[target] = append(q, dgramBytes)
}

// RecvFrame parses an inbound Ethernet frame. Frames not addressed to us or
// to the broadcast address are dropped. An IPv4 frame yields its datagram
// bytes; an ARP frame updates the cache (and replies to requests for our own
// address) and returns nothing; any other EtherType, or a malformed
// payload, is dropped silently.
func (ni *NetworkInterface) RecvFrame(frame []byte) (dgramBytes []byte, ok bool) {
	if len(frame) < header.EthernetMinimumSize {
		return nil, false
	}
	eth := header.Ethernet(frame)
	dst := eth.DestinationAddress()
	if dst != ni.ethAddr && dst != BroadcastEthernetAddr {
		return nil, false
	}

	payload := frame[header.EthernetMinimumSize:]
	switch eth.Type() {
	case header.IPv4ProtocolNumber:
		if _, err := ipv4header.ParseHeader(payload); err != nil {
			return nil, false
		}
		return payload, true
	case header.ARPProtocolNumber:
		ni.handleARP(payload)
		return nil, false
	default:
		ni.log.Debug("recv_frame: unsupported EtherType dropped", slog.String("iface", ni.name))
		return nil, false
	}
}

func (ni *NetworkInterface) handleARP(payload []byte) {
	if len(payload) < header.ARPSize {
		return
	}
	arp := header.ARP(payload)
	if !arp.IsValid() {
		return
	}

	senderIP, ok := netip.AddrFromSlice(arp.ProtocolAddressSender())
	if !ok {
		return
	}
	senderIP = senderIP.Unmap()
	senderEth := tcpip.LinkAddress(append([]byte(nil), arp.HardwareAddressSender()...))

	ni.arpCache[senderIP] = arpCacheEntry{addr: senderEth, expireMs: ni.nowMs + AddressCacheTTL}
	delete(ni.pendingRequests, senderIP)
	ni.flushPending(senderIP, senderEth)

	if arp.Op() != header.ARPRequest {
		return
	}
	targetIP, ok := netip.AddrFromSlice(arp.ProtocolAddressTarget())
	if !ok || targetIP.Unmap() != ni.ipAddr {
		return // only ever reply for our own bound address, never from cache
	}
	ni.outbound = append(ni.outbound, ni.buildARPReply(senderIP, senderEth))
	ni.log.Debug("ARP: reply sent", slog.String("iface", ni.name), slog.String("to", senderIP.String()))
}

func (ni *NetworkInterface) flushPending(target netip.Addr, eth tcpip.LinkAddress) {
	q := ni.pendingDgrams[target]
	if len(q) == 0 {
		return
	}
	delete(ni.pendingDgrams, target)
	for _, dgramBytes := range q {
		ni.outbound = append(ni.outbound, ni.frameEthernet(eth, header.IPv4ProtocolNumber, dgramBytes))
	}
}

// Tick advances the interface's clock, evicting expired ARP cache entries
// and expired outstanding-request markers.
func (ni *NetworkInterface) Tick(ms int64) {
	ni.nowMs += ms
	for ip, entry := range ni.arpCache {
		if entry.expireMs <= ni.nowMs {
			delete(ni.arpCache, ip)
		}
	}
	for ip, expiry := range ni.pendingRequests {
		if expiry <= ni.nowMs {
			delete(ni.pendingRequests, ip)
		}
	}
}

// MaybeSend pops one pending outbound Ethernet frame, in FIFO order.
func (ni *NetworkInterface) MaybeSend() ([]byte, bool) {
	if len(ni.outbound) == 0 {
		return nil, false
	}
	frame := ni.outbound[0]
	ni.outbound = ni.outbound[1:]
	return frame, true
}

func (ni *NetworkInterface) frameEthernet(dst tcpip.LinkAddress, ethType tcpip.NetworkProtocolNumber, payload []byte) []byte {
	frame := make([]byte, header.EthernetMinimumSize+len(payload))
	eth := header.Ethernet(frame)
	eth.Encode(&header.EthernetFields{
		SrcAddr: ni.ethAddr,
		DstAddr: dst,
		Type:    ethType,
	})
	copy(frame[header.EthernetMinimumSize:], payload)
	return frame
}

func (ni *NetworkInterface) buildARPRequest(target netip.Addr) []byte {
	arpPayload := make([]byte, header.ARPSize)
	arp := header.ARP(arpPayload)
	arp.SetIPv4OverEthernet()
	arp.SetOp(header.ARPRequest)
	copy(arp.HardwareAddressSender(), []byte(ni.ethAddr))
	copy(arp.ProtocolAddressSender(), ni.ipAddr.AsSlice())
	copy(arp.ProtocolAddressTarget(), target.AsSlice())
	return ni.frameEthernet(BroadcastEthernetAddr, header.ARPProtocolNumber, arpPayload)
}

func (ni *NetworkInterface) buildARPReply(targetIP netip.Addr, targetEth tcpip.LinkAddress) []byte {
	arpPayload := make([]byte, header.ARPSize)
	arp := header.ARP(arpPayload)
	arp.SetIPv4OverEthernet()
	arp.SetOp(header.ARPReply)
	copy(arp.HardwareAddressSender(), []byte(ni.ethAddr))
	copy(arp.ProtocolAddressSender(), ni.ipAddr.AsSlice())
	copy(arp.HardwareAddressTarget(), []byte(targetEth))
	copy(arp.ProtocolAddressTarget(), targetIP.AsSlice())
	return ni.frameEthernet(targetEth, header.ARPProtocolNumber, arpPayload)
}
