package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// DefaultMDNSService is the service type browsed when none is configured
	DefaultMDNSService = "_http._tcp"

	// MDNSDomain is the mDNS domain (typically "local.")
	MDNSDomain = "local."

	// SourceMDNS tags events produced by MDNSStream
	SourceMDNS = "mdns"
)

// browser is the part of zeroconf.Resolver the stream needs
type browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// MDNSStream streams mDNS/DNS-SD service announcements as discovery events.
// Each announced service instance is one device identity.
type MDNSStream struct {
	// Service is the DNS-SD service type to browse (e.g., "_http._tcp")
	Service string

	// Domain is the browse domain
	Domain string

	newBrowser func() (browser, error)
	feed       Feed
}

// NewMDNSStream creates an mDNS stream for the given service type.
// An empty service browses DefaultMDNSService.
func NewMDNSStream(service string) *MDNSStream {
	if service == "" {
		service = DefaultMDNSService
	}
	return &MDNSStream{
		Service: service,
		Domain:  MDNSDomain,
		newBrowser: func() (browser, error) {
			return zeroconf.NewResolver(nil)
		},
	}
}

// Activate starts browsing. Entries are relayed in arrival order until
// Deactivate is called.
func (s *MDNSStream) Activate() (<-chan Result, error) {
	ctx, cancel := context.WithCancel(context.Background())

	sess, err := s.feed.Begin(func(sess *Session) error {
		resolver, err := s.newBrowser()
		if err != nil {
			return Failure("failed to create mDNS resolver", err)
		}

		entries := make(chan *zeroconf.ServiceEntry)
		go s.relay(sess, entries)

		if err := resolver.Browse(ctx, s.Service, s.Domain, entries); err != nil {
			return Failure("failed to browse for mDNS services", err)
		}
		return nil
	}, cancel)
	if err != nil {
		cancel()
		return nil, err
	}

	return sess.Results(), nil
}

// Deactivate stops browsing. Safe to call at any time.
func (s *MDNSStream) Deactivate() {
	s.feed.End()
}

func (s *MDNSStream) relay(sess *Session, entries <-chan *zeroconf.ServiceEntry) {
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if ev, ok := parseServiceEntry(entry); ok {
				sess.Emit(ev)
			}
		case <-sess.Done():
			return
		}
	}
}

// parseServiceEntry converts a zeroconf service entry to an Event.
// Returns false if the entry carries no instance name.
func parseServiceEntry(entry *zeroconf.ServiceEntry) (Event, bool) {
	if entry == nil || entry.Instance == "" {
		return Event{}, false
	}

	domain := entry.Domain
	if domain == "" {
		domain = MDNSDomain
	}
	if !strings.HasSuffix(domain, ".") {
		domain += "."
	}

	// Prefer IPv4, fall back to IPv6
	var addr string
	for _, ip := range entry.AddrIPv4 {
		addr = ip.String()
		break
	}
	if addr == "" && len(entry.AddrIPv6) > 0 {
		addr = entry.AddrIPv6[0].String()
	}
	if addr != "" && entry.Port != 0 {
		addr = net.JoinHostPort(addr, strconv.Itoa(entry.Port))
	}

	name := strings.ReplaceAll(entry.Instance, `\ `, " ")

	return Event{
		Identity: fmt.Sprintf("%s.%s.%s", entry.Instance, entry.Service, domain),
		Name:     name,
		Address:  addr,
		Services: []string{entry.Service},
		Source:   SourceMDNS,
		SeenAt:   time.Now(),
	}, true
}
