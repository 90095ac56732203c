package sip

import (
	"log/slog"
	"strings"
)

// SanityRule names a sanity check rule.
type SanityRule string

const (
	SanityRuleMinimumHeaders SanityRule = "minimum_headers"
	SanityRuleFields         SanityRule = "fields"
	SanityRuleURIScheme      SanityRule = "uri_scheme"
	SanityRuleLoopBack       SanityRule = "loop_back"
	SanityRuleBodyLength     SanityRule = "body_length"
	SanityRuleMergedRequest  SanityRule = "merged_request"
	SanityRuleSingleVia      SanityRule = "single_via"
)

// Verdict is the outcome of a single sanity rule.
// The zero value passes.
type Verdict struct {
	fail   bool
	status ResponseStatus
}

// Pass lets the message through.
func Pass() Verdict { return Verdict{} }

// Drop discards the message without a reply.
func Drop() Verdict { return Verdict{fail: true} }

// Reject discards the message and answers it with the status.
func Reject(sts ResponseStatus) Verdict { return Verdict{fail: true, status: sts} }

func (v Verdict) Passed() bool { return !v.fail }

// Reply returns the status of the reply mandated by a reject verdict.
func (v Verdict) Reply() (ResponseStatus, bool) { return v.status, v.fail && v.status != 0 }

func (v Verdict) String() string {
	switch sts, ok := v.Reply(); {
	case !v.fail:
		return "pass"
	case ok:
		return "reject " + sts.String()
	default:
		return "drop"
	}
}

func (v Verdict) LogValue() slog.Value { return slog.StringValue(v.String()) }

// inspection is the input of a single validation.
type inspection struct {
	msg  *Message
	flds *MessageFields
	txs  TransactionStore
}

type sanityRule struct {
	name  SanityRule
	check func(c *SanityChecker, in *inspection) Verdict
}

var (
	requestRules = []sanityRule{
		{SanityRuleURIScheme, (*SanityChecker).checkURIScheme},
		{SanityRuleLoopBack, (*SanityChecker).checkLoopBack},
		{SanityRuleBodyLength, (*SanityChecker).checkRequestBodyLength},
		{SanityRuleMergedRequest, (*SanityChecker).checkMergedRequest},
	}
	responseRules = []sanityRule{
		{SanityRuleSingleVia, (*SanityChecker).checkSingleVia},
		{SanityRuleBodyLength, (*SanityChecker).checkResponseBodyLength},
	}
)

var mandatoryHeaders = []string{HeaderFrom, HeaderTo, HeaderCallID, HeaderCSeq, HeaderVia}

// checkMinimumHeaders must run before fields are resolved, later rules rely on these headers.
func checkMinimumHeaders(msg *Message) Verdict {
	for _, h := range mandatoryHeaders {
		if !msg.Headers.Has(h) {
			return Drop()
		}
	}
	return Pass()
}

// RFC 3261 Section 8.2.2.1.
func (c *SanityChecker) checkURIScheme(in *inspection) Verdict {
	if in.flds.ToScheme != c.scheme {
		return Reject(ResponseStatusUnsupportedURIScheme)
	}
	return Pass()
}

// RFC 3261 Section 16.3.4.
func (c *SanityChecker) checkLoopBack(in *inspection) Verdict {
	if in.flds.ToTag == "" && c.instanceID != "" && strings.HasPrefix(in.flds.CallID, c.instanceID) {
		return Reject(ResponseStatusLoopDetected)
	}
	return Pass()
}

// RFC 3261 Section 18.3.
// Only a body shorter than declared fails.
func bodyTooShort(in *inspection) bool {
	return in.flds.HasContentLength && len(in.msg.Body) < in.flds.ContentLength
}

func (*SanityChecker) checkRequestBodyLength(in *inspection) Verdict {
	if bodyTooShort(in) {
		return Reject(ResponseStatusBadRequest)
	}
	return Pass()
}

func (*SanityChecker) checkResponseBodyLength(in *inspection) Verdict {
	if bodyTooShort(in) {
		return Drop()
	}
	return Pass()
}

// RFC 3261 Section 8.2.2.2.
// A request matching a live transaction by branch is a retransmission and is dropped,
// for in-dialog requests as well. An initial request matching a live transaction
// by (From tag, Call-ID, CSeq) is a merged request.
func (*SanityChecker) checkMergedRequest(in *inspection) Verdict {
	if in.txs == nil {
		return Pass()
	}

	kind := ServerTransactionKind(in.msg.Method)
	if in.flds.ViaBranch != "" {
		if _, ok := in.txs.LookupTransaction(kind, in.flds.ViaBranch); ok {
			return Drop()
		}
	}
	if in.flds.ToTag != "" {
		return Pass()
	}
	for tx := range in.txs.Transactions(kind) {
		if tx.Request.matches(in.flds) {
			return Reject(ResponseStatusLoopDetected)
		}
	}
	return Pass()
}

// RFC 3261 Section 8.1.3.3.
func (*SanityChecker) checkSingleVia(in *inspection) Verdict {
	if len(in.msg.Headers.Get(HeaderVia)) > 1 {
		return Drop()
	}
	return Pass()
}
