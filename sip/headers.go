package sip

import (
	"iter"
	"strings"

	"github.com/ghettovoice/sipsanity/internal/util"
)

// Canonical names of the headers examined by the sanity check.
const (
	HeaderVia           = "via"
	HeaderFrom          = "from"
	HeaderTo            = "to"
	HeaderCallID        = "call-id"
	HeaderCSeq          = "cseq"
	HeaderContentLength = "content-length"
)

var compactHeaders = map[string]string{
	"a": "accept-contact",
	"b": "referred-by",
	"c": "content-type",
	"e": "content-encoding",
	"f": HeaderFrom,
	"i": HeaderCallID,
	"j": "reject-contact",
	"k": "supported",
	"l": HeaderContentLength,
	"m": "contact",
	"o": "event",
	"r": "refer-to",
	"s": "subject",
	"t": HeaderTo,
	"u": "allow-events",
	"v": HeaderVia,
	"x": "session-expires",
	"y": "identity",
}

// CanonicName returns the lower-cased full form of a header name.
// Compact forms (RFC 3261 Section 7.3.3) are expanded.
func CanonicName(name string) string {
	name = util.LCase(strings.TrimSpace(name))
	if full, ok := compactHeaders[name]; ok {
		return full
	}
	return name
}

// Headers is an ordered collection of raw header values keyed by canonical header name.
// The zero value is ready to use.
type Headers struct {
	names []string
	vals  map[string][]string
}

// Append adds a raw value under the canonical form of name.
func (hs *Headers) Append(name, value string) *Headers {
	name = CanonicName(name)
	if hs.vals == nil {
		hs.vals = make(map[string][]string)
	}
	if _, ok := hs.vals[name]; !ok {
		hs.names = append(hs.names, name)
	}
	hs.vals[name] = append(hs.vals[name], value)
	return hs
}

// Get returns all values of the header in the order they were added.
func (hs *Headers) Get(name string) []string {
	if hs == nil {
		return nil
	}
	return hs.vals[CanonicName(name)]
}

// First returns the first value of the header.
func (hs *Headers) First(name string) (string, bool) {
	vs := hs.Get(name)
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func (hs *Headers) Has(name string) bool { return len(hs.Get(name)) > 0 }

// Len returns the number of distinct headers.
func (hs *Headers) Len() int {
	if hs == nil {
		return 0
	}
	return len(hs.names)
}

// Names returns canonical header names in the order of their first appearance.
func (hs *Headers) Names() []string {
	if hs == nil {
		return nil
	}
	return append([]string(nil), hs.names...)
}

// All iterates over name/value pairs grouped by header.
func (hs *Headers) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if hs == nil {
			return
		}
		for _, n := range hs.names {
			for _, v := range hs.vals[n] {
				if !yield(n, v) {
					return
				}
			}
		}
	}
}

// splitHeaderValues splits a comma-separated header value.
// Commas inside quoted strings and angle brackets are kept.
func splitHeaderValues(s string) []string {
	var (
		vals   []string
		quoted bool
		angle  bool
		start  int
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case quoted && c == '\\':
			i++
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '<':
			angle = true
		case c == '>':
			angle = false
		case c == ',' && !angle:
			if v := strings.TrimSpace(s[start:i]); v != "" {
				vals = append(vals, v)
			}
			start = i + 1
		}
	}
	if v := strings.TrimSpace(s[start:]); v != "" {
		vals = append(vals, v)
	}
	return vals
}

// headerParam returns a parameter of a name-addr/addr-spec or Via header value.
// For name-addr values only parameters after the closing angle bracket are considered.
func headerParam(v, name string) (string, bool) {
	if i := indexUnquoted(v, '<'); i >= 0 {
		j := strings.IndexByte(v[i+1:], '>')
		if j < 0 {
			return "", false
		}
		v = v[i+j+2:]
	}
	i := indexUnquoted(v, ';')
	if i < 0 {
		return "", false
	}
	params := v[i+1:]
	for p := range strings.SplitSeq(params, ";") {
		k, val, _ := strings.Cut(p, "=")
		if util.EqFold(strings.TrimSpace(k), name) {
			return strings.Trim(strings.TrimSpace(val), `"`), true
		}
	}
	return "", false
}

// headerURI returns the URI of a name-addr or addr-spec header value.
// Brackets inside a quoted display name are ignored.
func headerURI(v string) string {
	if i := indexUnquoted(v, '<'); i >= 0 {
		v = v[i+1:]
		if j := strings.IndexByte(v, '>'); j >= 0 {
			v = v[:j]
		}
		return strings.TrimSpace(v)
	}
	if i := indexUnquoted(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// indexUnquoted returns the index of the first c outside quoted strings or -1.
func indexUnquoted(s string, c byte) int {
	var quoted bool
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case quoted && b == '\\':
			i++
		case b == '"':
			quoted = !quoted
		case !quoted && b == c:
			return i
		}
	}
	return -1
}

// uriScheme returns the lower-cased scheme of a URI or an empty string.
func uriScheme(uri string) string {
	scheme, _, ok := strings.Cut(uri, ":")
	if !ok {
		return ""
	}
	return util.LCase(strings.TrimSpace(scheme))
}
