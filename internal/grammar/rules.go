package grammar

import "github.com/ghettovoice/abnf"

// RFC 3261 Section 25.1 rules needed to recognize SIP and SIPS URIs.
// Host names are matched loosely here and checked label by label in [IsHost].

func lit(s string) abnf.Operator { return abnf.Literal(s, []byte(s)) }

func charsOf(key, chars string) abnf.Operator {
	ops := make([]abnf.Operator, 0, len(chars))
	for i := range len(chars) {
		ops = append(ops, lit(chars[i:i+1]))
	}
	return abnf.Alt(key, ops[0], ops[1:]...)
}

var (
	alpha = abnf.Alt("ALPHA",
		abnf.Range("ALPHA", []byte("A"), []byte("Z")),
		abnf.Range("ALPHA", []byte("a"), []byte("z")),
	)
	digit  = abnf.Range("DIGIT", []byte("0"), []byte("9"))
	hexdig = abnf.Alt("HEXDIG",
		digit,
		abnf.Range("HEXDIG", []byte("A"), []byte("F")),
		abnf.Range("HEXDIG", []byte("a"), []byte("f")),
	)
	alphanum   = abnf.Alt("alphanum", alpha, digit)
	mark       = charsOf("mark", "-_.!~*'()")
	unreserved = abnf.Alt("unreserved", alphanum, mark)
	escaped    = abnf.Concat("escaped", lit("%"), hexdig, hexdig)

	token = abnf.Repeat1Inf("token", abnf.Alt("token-char", alphanum, charsOf("token-mark", "-.!%*_+`'~")))

	user = abnf.Repeat1Inf("user",
		abnf.Alt("user-char", unreserved, escaped, charsOf("user-unreserved", "&=+$,;?/")),
	)
	password = abnf.Repeat0Inf("password",
		abnf.Alt("password-char", unreserved, escaped, charsOf("password-unreserved", "&=+$,")),
	)
	userinfo = abnf.Concat("userinfo",
		user,
		abnf.Optional("password-part", abnf.Concat("password-part", lit(":"), password)),
		lit("@"),
	)

	hostname      = abnf.Repeat1Inf("hostname", abnf.Alt("hostname-char", alphanum, lit("-"), lit(".")))
	ipv6reference = abnf.Concat("IPv6reference",
		lit("["),
		abnf.Repeat1Inf("IPv6address", abnf.Alt("IPv6-char", hexdig, lit(":"), lit("."))),
		lit("]"),
	)
	host     = abnf.Alt("host", hostname, ipv6reference)
	port     = abnf.Repeat1Inf("port", digit)
	hostport = abnf.Concat("hostport",
		host,
		abnf.Optional("port-part", abnf.Concat("port-part", lit(":"), port)),
	)

	paramchar    = abnf.Alt("paramchar", unreserved, escaped, charsOf("param-unreserved", "[]/:&+$"))
	uriParameter = abnf.Concat("uri-parameter",
		lit(";"),
		abnf.Repeat1Inf("pname", paramchar),
		abnf.Optional("pvalue-part", abnf.Concat("pvalue-part", lit("="), abnf.Repeat1Inf("pvalue", paramchar))),
	)
	uriParameters = abnf.Repeat0Inf("uri-parameters", uriParameter)

	hnvchar = abnf.Alt("hnvchar", unreserved, escaped, charsOf("hnv-unreserved", "[]/?:+$"))
	header  = abnf.Concat("header",
		abnf.Repeat1Inf("hname", hnvchar),
		lit("="),
		abnf.Repeat0Inf("hvalue", hnvchar),
	)
	headers = abnf.Concat("headers",
		lit("?"),
		header,
		abnf.Repeat0Inf("headers-tail", abnf.Concat("header-part", lit("&"), header)),
	)

	sipURI = abnf.Concat("SIP-URI",
		abnf.Alt("uri-scheme", lit("sips"), lit("sip")),
		lit(":"),
		abnf.Optional("userinfo", userinfo),
		hostport,
		uriParameters,
		abnf.Optional("headers", headers),
	)
)
