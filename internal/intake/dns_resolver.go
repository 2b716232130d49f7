package intake

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

const (
	DefaultLookupTimeout = 5 * time.Second
	resolvConfPath       = "/etc/resolv.conf"
)

type DNSResolverConfig struct {
	// Nameserver is host or host:port. Empty means the first resolv.conf server,
	// then the system resolver.
	Nameserver string
	Timeout    time.Duration
}

// DNSResolver queries MX records directly with miekg/dns, falling back to the
// system resolver when no nameserver can be determined.
type DNSResolver struct {
	udp        *dns.Client
	tcp        *dns.Client
	nameserver string
	timeout    time.Duration
	system     *net.Resolver
}

func NewDNSResolver(cfg DNSResolverConfig) *DNSResolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}

	nameserver := strings.TrimSpace(cfg.Nameserver)
	if nameserver != "" {
		if _, _, err := net.SplitHostPort(nameserver); err != nil {
			nameserver = net.JoinHostPort(nameserver, "53")
		}
	} else if conf, err := dns.ClientConfigFromFile(resolvConfPath); err == nil && len(conf.Servers) > 0 {
		nameserver = net.JoinHostPort(conf.Servers[0], conf.Port)
	}

	return &DNSResolver{
		udp:        &dns.Client{Net: "udp", Timeout: timeout},
		tcp:        &dns.Client{Net: "tcp", Timeout: timeout},
		nameserver: nameserver,
		timeout:    timeout,
		system:     net.DefaultResolver,
	}
}

func (r *DNSResolver) Nameserver() string {
	return r.nameserver
}

func (r *DNSResolver) LookupMX(ctx context.Context, domain string) LookupResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.nameserver == "" {
		return r.lookupSystem(ctx, domain)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeMX)

	resp, _, err := r.udp.ExchangeContext(ctx, msg, r.nameserver)
	if err == nil && resp != nil && resp.Truncated {
		resp, _, err = r.tcp.ExchangeContext(ctx, msg, r.nameserver)
	}
	if err != nil {
		return Failed(errors.Wrapf(err, "mx query for %s", domain))
	}
	if resp == nil {
		return Failed(errors.Errorf("mx query for %s returned no response", domain))
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return NotFound()
	default:
		return Failed(errors.Errorf("mx query for %s failed with rcode %s", domain, dns.RcodeToString[resp.Rcode]))
	}

	var records []MXRecord
	for _, ans := range resp.Answer {
		if mx, ok := ans.(*dns.MX); ok {
			records = append(records, MXRecord{Host: strings.TrimSuffix(mx.Mx, "."), Preference: mx.Preference})
		}
	}
	return Found(records...)
}

func (r *DNSResolver) lookupSystem(ctx context.Context, domain string) LookupResult {
	mxs, err := r.system.LookupMX(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return NotFound()
		}
		return Failed(errors.Wrapf(err, "mx lookup for %s", domain))
	}

	records := make([]MXRecord, 0, len(mxs))
	for _, mx := range mxs {
		records = append(records, MXRecord{Host: strings.TrimSuffix(mx.Host, "."), Preference: mx.Pref})
	}
	return Found(records...)
}
