package detect

import (
	"context"
	"crypto/tls"
	"net"
	"strings"
	"time"

	whois "github.com/likexian/whois"
	parser "github.com/likexian/whois-parser"
	"github.com/miekg/dns"
	"github.com/rs/zerolog"
)

// DomainExtractor derives domain-structure features and, when UseNetwork is
// set, WHOIS age, DNS record counts, connectivity, and TLS certificate
// lifetime. Every network failure degrades to the sentinel defaults so the
// fragment shape never varies.
type DomainExtractor struct {
	UseNetwork bool
	Timeout    time.Duration
	Resolver   string // DNS server addr, host:port; defaults to 8.8.8.8:53
	Logger     zerolog.Logger
}

func (DomainExtractor) Name() string { return "domain" }

func (e DomainExtractor) Extract(ctx context.Context, t *Target) FeatureRecord {
	f := FeatureRecord{}
	host := t.Hostname

	parts := strings.Split(host, ".")
	f["domain_parts_count"] = float64(len(parts))
	if len(parts) >= 2 {
		f["tld_length"] = float64(len(parts[len(parts)-1]))
		f["domain_name_length"] = float64(len(parts[len(parts)-2]))
		f["subdomain_count"] = float64(len(parts) - 2)
	} else {
		f["tld_length"] = 0
		f["domain_name_length"] = float64(len(host))
		f["subdomain_count"] = 0
	}

	if !e.UseNetwork || t.IsIPHost() {
		for k, v := range e.networkDefaults() {
			f[k] = v
		}
		return f
	}

	domain := t.Registrable
	if domain == "" {
		domain = t.BareHostname()
	}

	f["whois_available"] = 0
	f["domain_age_days"] = -1
	if age, ok := e.whoisAgeDays(domain); ok {
		f["whois_available"] = 1
		f["domain_age_days"] = float64(age)
	}

	a, mx, ok := e.dnsRecordCounts(ctx, t.Hostname)
	f["dns_a_records"] = float64(a)
	f["dns_mx_records"] = float64(mx)
	f["dns_available"] = boolFeature(ok)
	f["host_resolves"] = boolFeature(a > 0)

	days, ok := e.tlsCertDays(t.Hostname)
	f["tls_available"] = boolFeature(ok)
	if ok {
		f["tls_cert_days_left"] = float64(days)
	} else {
		f["tls_cert_days_left"] = -1
	}

	return f
}

func (e DomainExtractor) FeatureNames() []string {
	return []string{
		"domain_parts_count", "tld_length", "domain_name_length", "subdomain_count",
		"domain_age_days", "whois_available",
		"dns_a_records", "dns_mx_records", "dns_available", "host_resolves",
		"tls_available", "tls_cert_days_left",
	}
}

func (e DomainExtractor) networkDefaults() FeatureRecord {
	return FeatureRecord{
		"domain_age_days":    -1,
		"whois_available":    0,
		"dns_a_records":      0,
		"dns_mx_records":     0,
		"dns_available":      0,
		"host_resolves":      0,
		"tls_available":      0,
		"tls_cert_days_left": -1,
	}
}

// whoisAgeDays looks up the domain's registration age. Registries answer for
// registrable domains only, so lookups walk up to the parent when the parser
// finds no domain section.
func (e DomainExtractor) whoisAgeDays(domain string) (int, bool) {
	raw, err := whois.Whois(domain)
	if err != nil {
		e.Logger.Debug().Err(err).Str("domain", domain).Msg("whois lookup failed")
		return 0, false
	}

	p, err := parser.Parse(raw)
	if err != nil || p.Domain == nil {
		parts := strings.Split(domain, ".")
		if len(parts) > 2 {
			return e.whoisAgeDays(strings.Join(parts[1:], "."))
		}
		return 0, false
	}

	created := parseWhoisDate(p.Domain.CreatedDate)
	if created.IsZero() {
		return 0, false
	}
	return int(time.Since(created).Hours() / 24), true
}

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

func parseWhoisDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// dnsRecordCounts queries A and MX records directly against the configured
// resolver. ok is false only when both queries fail outright; an empty
// answer section still counts as an available DNS view.
func (e DomainExtractor) dnsRecordCounts(ctx context.Context, host string) (aCount, mxCount int, ok bool) {
	resolver := e.Resolver
	if resolver == "" {
		resolver = "8.8.8.8:53"
	}
	client := &dns.Client{Timeout: e.timeout()}
	fqdn := dns.Fqdn(host)

	query := func(qtype uint16) (int, bool) {
		msg := new(dns.Msg)
		msg.SetQuestion(fqdn, qtype)
		resp, _, err := client.ExchangeContext(ctx, msg, resolver)
		if err != nil || resp == nil {
			return 0, false
		}
		count := 0
		for _, rr := range resp.Answer {
			if rr.Header().Rrtype == qtype {
				count++
			}
		}
		return count, true
	}

	var aOK, mxOK bool
	aCount, aOK = query(dns.TypeA)
	mxCount, mxOK = query(dns.TypeMX)
	if !aOK && !mxOK {
		e.Logger.Debug().Str("host", host).Msg("dns queries failed")
		return 0, 0, false
	}
	return aCount, mxCount, true
}

// tlsCertDays probes port 443 and returns the leaf certificate's remaining
// lifetime in days.
func (e DomainExtractor) tlsCertDays(host string) (int, bool) {
	dialer := &net.Dialer{Timeout: e.timeout()}
	conn, err := tls.DialWithDialer(dialer, "tcp", host+":443", &tls.Config{ServerName: host})
	if err != nil {
		return 0, false
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return 0, false
	}
	return int(time.Until(certs[0].NotAfter).Hours() / 24), true
}

func (e DomainExtractor) timeout() time.Duration {
	if e.Timeout <= 0 {
		return 5 * time.Second
	}
	return e.Timeout
}
