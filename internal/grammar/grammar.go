// Package grammar recognizes SIP grammar productions.
package grammar

//go:generate go tool errtrace -w .

import (
	"net/netip"
	"strings"

	"braces.dev/errtrace"
	"github.com/ghettovoice/abnf"
	"github.com/miekg/dns"

	"github.com/ghettovoice/sipsanity/internal/errorutil"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrEmptyInput     Error = "empty input"
	ErrMalformedInput Error = "malformed input"
)

func newMalformedInputErr(args ...any) error {
	return errorutil.NewWrapperError(ErrMalformedInput, args...) //errtrace:skip
}

// matchAll reports whether op consumes the whole input.
func matchAll(op abnf.Operator, s []byte) error {
	ns := abnf.NewNodes()
	defer ns.Free()

	if err := op(s, 0, ns); err != nil {
		return errtrace.Wrap(newMalformedInputErr(err))
	}

	n := ns.Best()
	if nl, il := n.Len(), len(s); nl < il {
		return errtrace.Wrap(newMalformedInputErr("node length %d < input length %d", nl, il))
	}
	return nil
}

// IsToken reports whether s is an RFC 3261 token.
func IsToken[T ~string | ~[]byte](s T) bool {
	if len(s) == 0 {
		return false
	}
	return matchAll(token, []byte(s)) == nil
}

// ValidateSIPURI checks that s is a SIP or SIPS URI as defined by RFC 3261 Section 25.1.
func ValidateSIPURI(s string) error {
	if len(s) == 0 {
		return errtrace.Wrap(ErrEmptyInput)
	}
	if err := matchAll(sipURI, []byte(s)); err != nil {
		return errtrace.Wrap(err)
	}
	if h := uriHost(s); !IsHost(h) {
		return errtrace.Wrap(newMalformedInputErr("invalid host %q", h))
	}
	return nil
}

// IsSIPURI reports whether s is a valid SIP or SIPS URI.
func IsSIPURI(s string) bool { return ValidateSIPURI(s) == nil }

// uriHost extracts the host part of a URI that already matched the SIP-URI rule.
func uriHost(s string) string {
	_, rest, _ := strings.Cut(s, ":")
	// '@' is not allowed in parameters and headers, so the last one ends the userinfo
	if i := strings.LastIndexByte(rest, '@'); i >= 0 {
		rest = rest[i+1:]
	}
	if strings.HasPrefix(rest, "[") {
		if i := strings.IndexByte(rest, ']'); i >= 0 {
			return rest[:i+1]
		}
		return rest
	}
	if i := strings.IndexAny(rest, ":;?"); i >= 0 {
		return rest[:i]
	}
	return rest
}

// IsHost reports whether s is a hostname, an IPv4 address or an IPv6 reference.
func IsHost(s string) bool {
	if len(s) == 0 {
		return false
	}

	if s[0] == '[' {
		if s[len(s)-1] != ']' {
			return false
		}
		addr, err := netip.ParseAddr(s[1 : len(s)-1])
		return err == nil && addr.Is6()
	}

	if strings.Trim(s, "0123456789.") == "" {
		addr, err := netip.ParseAddr(s)
		return err == nil && addr.Is4()
	}

	return isHostname(s)
}

// isHostname follows the RFC 3261 hostname rule:
//
//	hostname    = *( domainlabel "." ) toplabel [ "." ]
//	domainlabel = alphanum / alphanum *( alphanum / "-" ) alphanum
//	toplabel    = ALPHA / ALPHA *( alphanum / "-" ) alphanum
func isHostname(s string) bool {
	if _, ok := dns.IsDomainName(s); !ok {
		return false
	}

	labels := dns.SplitDomainName(s)
	if len(labels) == 0 {
		return false
	}
	for _, l := range labels {
		if l[0] == '-' || l[len(l)-1] == '-' {
			return false
		}
		for i := range len(l) {
			if !isAlphanum(l[i]) && l[i] != '-' {
				return false
			}
		}
	}
	top := labels[len(labels)-1]
	return isAlpha(top[0])
}

func isAlpha(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }

func isAlphanum(c byte) bool { return isAlpha(c) || c >= '0' && c <= '9' }
