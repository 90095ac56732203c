package sip

import "context"

// MessageReceiver consumes inbound messages.
type MessageReceiver interface {
	RecvMessage(ctx context.Context, msg *Message) error
}

type MessageReceiverFunc func(ctx context.Context, msg *Message) error

func (fn MessageReceiverFunc) RecvMessage(ctx context.Context, msg *Message) error {
	return fn(ctx, msg) //errtrace:skip
}

// InboundInterceptor intercepts inbound messages before they reach the receiver.
// An interceptor drops a message by returning without calling next.
type InboundInterceptor interface {
	InterceptInbound(ctx context.Context, msg *Message, next MessageReceiver) error
}

type InboundInterceptorFunc func(ctx context.Context, msg *Message, next MessageReceiver) error

func (fn InboundInterceptorFunc) InterceptInbound(ctx context.Context, msg *Message, next MessageReceiver) error {
	return fn(ctx, msg, next) //errtrace:skip
}

// ChainInbound builds a receiver pipeline in FIFO order.
func ChainInbound(interceptors []InboundInterceptor, final MessageReceiver) MessageReceiver {
	if final == nil {
		return nil
	}

	receiver := final
	for i := len(interceptors) - 1; i >= 0; i-- {
		interceptor := interceptors[i]
		if interceptor == nil {
			continue
		}
		next := receiver
		receiver = MessageReceiverFunc(func(ctx context.Context, msg *Message) error {
			return interceptor.InterceptInbound(ctx, msg, next) //errtrace:skip
		})
	}
	return receiver
}
