package sip

import (
	"context"
	"log/slog"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipsanity/internal/util"
	"github.com/ghettovoice/sipsanity/log"
)

// DefaultScheme is the URI scheme a checker supports unless configured otherwise.
const DefaultScheme = "sip"

// SanityCheckerOptions are options of [NewSanityChecker].
type SanityCheckerOptions struct {
	// InstanceID is the Call-ID prefix of requests originated by this agent,
	// see [NewCallID]. Initial requests carrying it are treated as loop-backs.
	// If empty, loop-back detection is disabled.
	InstanceID string
	// Scheme is the supported To URI scheme.
	// Default is [DefaultScheme].
	Scheme string
	// Stats records verdicts. Optional.
	Stats *SanityStats
	// Logger is a logger used to log verdicts.
	// If nil, [log.Default] is used.
	Logger *slog.Logger
}

func (o *SanityCheckerOptions) instanceID() string {
	if o == nil {
		return ""
	}
	return o.InstanceID
}

func (o *SanityCheckerOptions) scheme() string {
	if o == nil || o.Scheme == "" {
		return DefaultScheme
	}
	return util.LCase(o.Scheme)
}

func (o *SanityCheckerOptions) stats() *SanityStats {
	if o == nil {
		return nil
	}
	return o.Stats
}

func (o *SanityCheckerOptions) log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// SanityChecker is the admission gate for inbound messages.
//
// It applies the RFC 3261 sanity rules in a fixed order and stops at the first failure.
// A failed request is answered with the status mandated by the rule, if any;
// responses are never answered.
// The checker keeps no state between calls and is safe for concurrent use.
type SanityChecker struct {
	instanceID string
	scheme     string
	stats      *SanityStats
	log        *slog.Logger
}

// NewSanityChecker creates a new checker.
// Options are optional, default options are used if nil.
func NewSanityChecker(opts *SanityCheckerOptions) *SanityChecker {
	return &SanityChecker{
		instanceID: opts.instanceID(),
		scheme:     opts.scheme(),
		stats:      opts.stats(),
		log:        opts.log(),
	}
}

// Check reports whether msg may be passed on to the transaction layer.
//
// The transaction store is consulted for retransmitted and merged requests,
// it may be nil. The reply to a rejected request is sent through tp, which may also be nil.
func (c *SanityChecker) Check(ctx context.Context, msg *Message, txs TransactionStore, tp MessageSender) bool {
	if msg == nil {
		return false
	}

	in, rule, vrd := c.evaluate(msg, txs)
	if vrd.Passed() {
		c.stats.recordAccepted()
		c.log.LogAttrs(ctx, slog.LevelDebug, "message accepted", slog.Any("message", msg))
		return true
	}

	c.stats.recordFailure(rule, vrd)
	c.log.LogAttrs(ctx, slog.LevelDebug, "message discarded",
		slog.Any("message", msg),
		slog.String("rule", string(rule)),
		slog.Any("verdict", vrd),
	)
	if sts, ok := vrd.Reply(); ok && msg.IsRequest() {
		c.reply(ctx, msg, in.flds, sts, tp)
	}
	return false
}

func (c *SanityChecker) evaluate(msg *Message, txs TransactionStore) (*inspection, SanityRule, Verdict) {
	if vrd := checkMinimumHeaders(msg); !vrd.Passed() {
		return nil, SanityRuleMinimumHeaders, vrd
	}

	flds, err := msg.Fields()
	if err != nil {
		return nil, SanityRuleFields, Drop()
	}

	in := &inspection{msg: msg, flds: flds, txs: txs}

	var rules []sanityRule
	switch {
	case msg.IsRequest():
		rules = requestRules
	case msg.IsResponse():
		rules = responseRules
	default:
		return in, SanityRuleFields, Drop()
	}

	for _, r := range rules {
		if vrd := r.check(c, in); !vrd.Passed() {
			return in, r.name, vrd
		}
	}
	return in, "", Pass()
}

// InboundInterceptor returns an interceptor that passes on only messages accepted by the checker.
// Replies are sent through the transport found in the context, see [ContextWithTransport].
func (c *SanityChecker) InboundInterceptor(txs TransactionStore) InboundInterceptor {
	return InboundInterceptorFunc(func(ctx context.Context, msg *Message, next MessageReceiver) error {
		tp, _ := TransportFromContext(ctx)
		if !c.Check(ctx, msg, txs, tp) {
			return nil
		}
		return errtrace.Wrap(next.RecvMessage(ctx, msg))
	})
}

// CheckMessage checks msg with a checker using default options.
// Loop-back detection is disabled, use [NewSanityChecker] with an instance id to enable it.
func CheckMessage(ctx context.Context, msg *Message, txs TransactionStore, tp MessageSender) bool {
	return NewSanityChecker(nil).Check(ctx, msg, txs, tp)
}
