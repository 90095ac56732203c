package sip

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipsanity/internal/errorutil"
	"github.com/ghettovoice/sipsanity/internal/syncutil"
	"github.com/ghettovoice/sipsanity/log"
)

// EndpointOptions are options of [NewEndpoint].
type EndpointOptions struct {
	// InstanceID identifies this agent, see [NewCallID].
	// If empty, a random one is generated with [NewInstanceID].
	InstanceID string
	// Scheme is the supported To URI scheme.
	// Default is [DefaultScheme].
	Scheme string
	// Transactions is the store of live transactions consulted by the sanity check.
	// If nil, a new [MemoryTransactionStore] is used.
	Transactions TransactionStore
	// Stats records sanity check verdicts. Optional.
	Stats *SanityStats
	// Interceptors run after the sanity check in FIFO order.
	Interceptors []InboundInterceptor
	// Logger is a logger used to log endpoint events.
	// If nil, [log.Default] is used.
	Logger *slog.Logger
}

func (o *EndpointOptions) instanceID() string {
	if o == nil || o.InstanceID == "" {
		return NewInstanceID()
	}
	return o.InstanceID
}

func (o *EndpointOptions) scheme() string {
	if o == nil {
		return ""
	}
	return o.Scheme
}

func (o *EndpointOptions) txs() TransactionStore {
	if o == nil || o.Transactions == nil {
		return NewMemoryTransactionStore()
	}
	return o.Transactions
}

func (o *EndpointOptions) stats() *SanityStats {
	if o == nil {
		return nil
	}
	return o.Stats
}

func (o *EndpointOptions) interceptors() []InboundInterceptor {
	if o == nil {
		return nil
	}
	return o.Interceptors
}

func (o *EndpointOptions) log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// Endpoint receives raw packets from its transports, admits them through
// the sanity check and hands accepted messages to the handler.
type Endpoint struct {
	instanceID string
	txs        TransactionStore
	checker    *SanityChecker
	tps        *syncutil.ShardMap[string, Transport]
	recv       MessageReceiver
	log        *slog.Logger
}

// NewEndpoint creates a new endpoint delivering accepted messages to handler.
// Options are optional, default options are used if nil.
func NewEndpoint(handler MessageReceiver, opts *EndpointOptions) (*Endpoint, error) {
	if handler == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil handler"))
	}

	ep := &Endpoint{
		instanceID: opts.instanceID(),
		txs:        opts.txs(),
		tps:        syncutil.NewShardMap[string, Transport](0),
		log:        opts.log(),
	}
	ep.checker = NewSanityChecker(&SanityCheckerOptions{
		InstanceID: ep.instanceID,
		Scheme:     opts.scheme(),
		Stats:      opts.stats(),
		Logger:     ep.log,
	})

	interceptors := make([]InboundInterceptor, 0, len(opts.interceptors())+1)
	interceptors = append(interceptors, ep.checker.InboundInterceptor(ep.txs))
	interceptors = append(interceptors, opts.interceptors()...)
	ep.recv = ChainInbound(interceptors, handler)
	return ep, nil
}

func (ep *Endpoint) InstanceID() string { return ep.instanceID }

func (ep *Endpoint) Transactions() TransactionStore { return ep.txs }

// NewCallID generates a Call-ID for a request originated by this endpoint.
func (ep *Endpoint) NewCallID() string { return NewCallID(ep.instanceID) }

// AddTransport validates and registers the transport under its URI.
func (ep *Endpoint) AddTransport(tp Transport) error {
	if err := ValidateTransport(tp); err != nil {
		return errtrace.Wrap(err)
	}

	uri := tp.URI()
	if ep.tps.Has(uri) {
		return errtrace.Wrap(errorf(ErrTransportExists, uri))
	}
	ep.tps.Set(uri, tp)

	ep.log.LogAttrs(context.Background(), slog.LevelDebug, "transport added",
		slog.String("uri", uri),
		slog.String("via_transport", tp.ViaTransport()),
	)
	return nil
}

// RemoveTransport unregisters the transport with the URI.
func (ep *Endpoint) RemoveTransport(uri string) error {
	if _, ok := ep.tps.Del(uri); !ok {
		return errtrace.Wrap(errorf(ErrTransportNotFound, uri))
	}
	ep.log.LogAttrs(context.Background(), slog.LevelDebug, "transport removed", slog.String("uri", uri))
	return nil
}

// Transports returns registered transports sorted by URI.
func (ep *Endpoint) Transports() []Transport {
	snap := ep.tps.Snapshot()
	tps := make([]Transport, 0, len(snap))
	for _, tp := range snap {
		tps = append(tps, tp)
	}
	slices.SortFunc(tps, func(a, b Transport) int { return strings.Compare(a.URI(), b.URI()) })
	return tps
}

// RecvPacket parses data received from tp and passes the message through the pipeline.
// A message discarded by the sanity check is not an error.
func (ep *Endpoint) RecvPacket(ctx context.Context, tp MessageSender, data []byte) error {
	msg, err := ParsePacket(data)
	if err != nil {
		ep.log.LogAttrs(ctx, slog.LevelDebug, "discarding unparsable packet",
			slog.Int("size", len(data)),
			slog.Any("error", err),
		)
		return errtrace.Wrap(err)
	}
	return errtrace.Wrap(ep.recv.RecvMessage(ContextWithTransport(ctx, tp), msg))
}

func errorf(sentinel Error, uri string) error {
	return errorutil.NewWrapperError(sentinel, "%q", uri) //errtrace:skip
}
