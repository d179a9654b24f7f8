package mdns

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// Host represents a discovered rtl_tcp server
type Host struct {
	Instance  string // Advertised name: "rtl_tcp on roof"
	Hostname  string // DNS hostname: "roof.local."
	Addresses []net.IP
	Port      int
	TXT       []string
}

// Addr returns a dialable host:port string for the first address, or the
// hostname when no address was resolved.
func (h Host) Addr() string {
	if len(h.Addresses) > 0 {
		return net.JoinHostPort(h.Addresses[0].String(), fmt.Sprint(h.Port))
	}
	return net.JoinHostPort(strings.TrimSuffix(h.Hostname, "."), fmt.Sprint(h.Port))
}

// DiscoverRTLTCP performs a blocking mDNS browse for _rtltcp._tcp.local
// services. It returns cleaned and deduplicated host entries.
func DiscoverRTLTCP(timeoutSeconds int) ([]Host, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("resolver error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	seen := make(map[string]Host)

	done := make(chan struct{})
	go func() {
		defer close(done)
		collect(ctx, entries, seen)
	}()

	if err := resolver.Browse(ctx, "_rtltcp._tcp", "local.", entries); err != nil {
		return nil, fmt.Errorf("browse error: %w", err)
	}

	<-done // wait for results

	out := make([]Host, 0, len(seen))
	for _, h := range seen {
		out = append(out, h)
	}
	return out, nil
}

// collect drains browse results into seen, deduplicating repeated
// announcements of the same server. It returns when entries closes or the
// context ends, so a browse that never takes ownership of the channel
// cannot strand the consumer.
func collect(ctx context.Context, entries <-chan *zeroconf.ServiceEntry, seen map[string]Host) {
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return
			}
			if e == nil {
				continue
			}
			addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
			addrs = append(addrs, e.AddrIPv4...)
			addrs = append(addrs, e.AddrIPv6...)

			key := fmt.Sprintf("%s|%d", e.HostName, e.Port)
			seen[key] = Host{
				Instance:  cleanInstance(e.Instance),
				Hostname:  e.HostName,
				Addresses: addrs,
				Port:      e.Port,
				TXT:       append([]string{}, e.Text...),
			}
		case <-ctx.Done():
			return
		}
	}
}

// cleanInstance removes Zeroconf escape sequences: "\ " => " "
func cleanInstance(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}
