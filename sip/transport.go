package sip

//go:generate go tool mockgen -destination=../internal/testutil/sipmock/sipmock.go -package=sipmock . MessageSender,Transport

import (
	"context"
	"fmt"
	"reflect"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipsanity/internal/errorutil"
	"github.com/ghettovoice/sipsanity/internal/grammar"
)

// MessageSender sends serialized SIP messages back to the peer.
type MessageSender interface {
	Send(ctx context.Context, data []byte) error
}

type MessageSenderFunc func(ctx context.Context, data []byte) error

func (fn MessageSenderFunc) Send(ctx context.Context, data []byte) error {
	return fn(ctx, data) //errtrace:skip
}

// Transport is a connection to a SIP peer.
type Transport interface {
	MessageSender
	// ViaTransport returns the transport token used in Via headers, e.g. "UDP" or "WSS".
	ViaTransport() string
	// URI returns the SIP URI identifying the transport.
	URI() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// ValidateTransport checks that v exposes every capability of [Transport]
// with usable values: a token Via transport name and a SIP URI identity.
// All problems found are reported in one error wrapping [ErrInvalidTransport].
func ValidateTransport(v any) error {
	if v == nil {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidTransport, "nil value"))
	}
	if rv := reflect.ValueOf(v); isNilable(rv.Kind()) && rv.IsNil() {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidTransport, "nil %T", v))
	}

	var errs []error
	if tp, ok := v.(interface{ ViaTransport() string }); !ok {
		errs = append(errs, missingMethodError("ViaTransport"))
	} else if name := tp.ViaTransport(); !grammar.IsToken(name) {
		errs = append(errs, fmt.Errorf("via transport %q is not a token", name))
	}
	if tp, ok := v.(interface{ URI() string }); !ok {
		errs = append(errs, missingMethodError("URI"))
	} else if err := grammar.ValidateSIPURI(tp.URI()); err != nil {
		errs = append(errs, fmt.Errorf("uri %q: %w", tp.URI(), err))
	}
	if _, ok := v.(interface{ Connect(context.Context) error }); !ok {
		errs = append(errs, missingMethodError("Connect"))
	}
	if _, ok := v.(interface{ Disconnect(context.Context) error }); !ok {
		errs = append(errs, missingMethodError("Disconnect"))
	}
	if _, ok := v.(MessageSender); !ok {
		errs = append(errs, missingMethodError("Send"))
	}

	if err := errorutil.JoinPrefix(fmt.Sprintf("%T", v), errs...); err != nil {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidTransport, err))
	}
	return nil
}

// IsTransport reports whether v passes [ValidateTransport].
func IsTransport(v any) bool { return ValidateTransport(v) == nil }

func missingMethodError(name string) error {
	return fmt.Errorf("missing method %s", name) //errtrace:skip
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return true
	default:
		return false
	}
}

type transportCtxKey struct{}

// ContextWithTransport returns a context carrying the transport a message arrived on.
func ContextWithTransport(ctx context.Context, tp MessageSender) context.Context {
	return context.WithValue(ctx, transportCtxKey{}, tp)
}

// TransportFromContext returns the transport stored by [ContextWithTransport].
func TransportFromContext(ctx context.Context) (MessageSender, bool) {
	tp, ok := ctx.Value(transportCtxKey{}).(MessageSender)
	return tp, ok && tp != nil
}
