package sip

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"reflect"
	"sync"
	"time"

	"braces.dev/errtrace"
	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/sipsanity/internal/errorutil"
	"github.com/ghettovoice/sipsanity/log"
)

// UDPTransportState is a state of [UDPTransport].
type UDPTransportState string

const (
	UDPTransportStateDisconnected UDPTransportState = "disconnected"
	UDPTransportStateConnected    UDPTransportState = "connected"
	UDPTransportStateClosed       UDPTransportState = "closed"
)

const (
	udpEvtConnect    = "connect"
	udpEvtDisconnect = "disconnect"
	udpEvtClose      = "close"
)

const (
	defUDPReadBufSize = 65535
	udpReadPoll       = 200 * time.Millisecond
)

// UDPTransportOptions contains UDP transport options.
type UDPTransportOptions struct {
	// LocalAddr is a local "host:port" to bind to.
	// If empty, an ephemeral port is used.
	LocalAddr string
	// ReadBufferSize is a size of the datagram read buffer.
	// Default is 65535.
	ReadBufferSize int
	// Logger is a logger used to log transport events.
	// If nil, [log.Default] is used.
	Logger *slog.Logger
}

func (o *UDPTransportOptions) laddr() string {
	if o == nil {
		return ""
	}
	return o.LocalAddr
}

func (o *UDPTransportOptions) readBufSize() int {
	if o == nil || o.ReadBufferSize <= 0 {
		return defUDPReadBufSize
	}
	return o.ReadBufferSize
}

func (o *UDPTransportOptions) log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// UDPTransport is a [Transport] over a connected UDP socket to a single peer.
type UDPTransport struct {
	raddr string
	uri   string
	opts  UDPTransportOptions
	log   *slog.Logger
	fsm   *stateless.StateMachine

	// mu serializes state transitions and guards conn.
	mu   sync.RWMutex
	conn net.Conn
}

// NewUDPTransport creates a disconnected transport to the remote "host:port".
// Options are optional, default options are used if nil.
func NewUDPTransport(raddr string, opts *UDPTransportOptions) (*UDPTransport, error) {
	host, port, err := net.SplitHostPort(raddr)
	if err != nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError(err))
	}
	if host == "" || port == "" {
		return nil, errtrace.Wrap(NewInvalidArgumentError("invalid remote address %q", raddr))
	}

	tp := &UDPTransport{
		raddr: raddr,
		uri:   "sip:" + net.JoinHostPort(host, port) + ";transport=udp",
		log:   opts.log(),
	}
	if opts != nil {
		tp.opts = *opts
	}
	tp.initFSM()
	return tp, nil
}

func (tp *UDPTransport) initFSM() {
	tp.fsm = stateless.NewStateMachine(UDPTransportStateDisconnected)
	tp.fsm.SetTriggerParameters(udpEvtConnect, reflect.TypeFor[net.Conn]())

	tp.fsm.Configure(UDPTransportStateDisconnected).
		Permit(udpEvtConnect, UDPTransportStateConnected).
		Ignore(udpEvtDisconnect).
		Permit(udpEvtClose, UDPTransportStateClosed)

	tp.fsm.Configure(UDPTransportStateConnected).
		OnEntryFrom(udpEvtConnect, tp.actConnected).
		OnExit(tp.actDisconnected).
		Permit(udpEvtDisconnect, UDPTransportStateDisconnected).
		Permit(udpEvtClose, UDPTransportStateClosed)

	tp.fsm.Configure(UDPTransportStateClosed).
		OnEntry(tp.actClosed).
		Ignore(udpEvtDisconnect).
		Ignore(udpEvtClose)
}

func (*UDPTransport) ViaTransport() string { return "UDP" }

func (tp *UDPTransport) URI() string { return tp.uri }

// State returns the current transport state.
func (tp *UDPTransport) State() UDPTransportState {
	return tp.fsm.MustState().(UDPTransportState) //nolint:forcetypeassert
}

// LocalAddr returns the local address of the socket or nil when disconnected.
func (tp *UDPTransport) LocalAddr() net.Addr {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	if tp.conn == nil {
		return nil
	}
	return tp.conn.LocalAddr()
}

// Connect dials the remote peer. Connecting a connected transport is a no-op.
func (tp *UDPTransport) Connect(ctx context.Context) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	switch tp.State() {
	case UDPTransportStateConnected:
		return nil
	case UDPTransportStateClosed:
		return errtrace.Wrap(ErrTransportClosed)
	}

	var dialer net.Dialer
	if laddr := tp.opts.laddr(); laddr != "" {
		addr, err := net.ResolveUDPAddr("udp", laddr)
		if err != nil {
			return errtrace.Wrap(NewInvalidArgumentError(err))
		}
		dialer.LocalAddr = addr
	}
	conn, err := dialer.DialContext(ctx, "udp", tp.raddr)
	if err != nil {
		return errtrace.Wrap(err)
	}
	if err := tp.fsm.FireCtx(ctx, udpEvtConnect, conn); err != nil {
		conn.Close()
		return errtrace.Wrap(err)
	}
	return nil
}

// Disconnect closes the socket. The transport can be connected again.
func (tp *UDPTransport) Disconnect(ctx context.Context) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if tp.State() == UDPTransportStateClosed {
		return errtrace.Wrap(ErrTransportClosed)
	}
	return errtrace.Wrap(tp.fsm.FireCtx(ctx, udpEvtDisconnect))
}

// Close disconnects the transport permanently.
func (tp *UDPTransport) Close() error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	return errtrace.Wrap(tp.fsm.FireCtx(context.Background(), udpEvtClose))
}

func (tp *UDPTransport) actConnected(ctx context.Context, args ...any) error {
	tp.conn = args[0].(net.Conn) //nolint:forcetypeassert

	tp.log.LogAttrs(ctx, slog.LevelDebug, "transport connected",
		slog.String("uri", tp.uri),
		slog.Any("connection", tp.conn),
	)
	return nil
}

func (tp *UDPTransport) actDisconnected(ctx context.Context, _ ...any) error {
	conn := tp.conn
	tp.conn = nil
	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil && !errorutil.IsClosedConnErr(err) {
		tp.log.LogAttrs(ctx, slog.LevelWarn, "failed to close connection",
			slog.String("uri", tp.uri),
			slog.Any("error", err),
		)
	}
	tp.log.LogAttrs(ctx, slog.LevelDebug, "transport disconnected", slog.String("uri", tp.uri))
	return nil
}

func (tp *UDPTransport) actClosed(ctx context.Context, _ ...any) error {
	tp.log.LogAttrs(ctx, slog.LevelDebug, "transport closed", slog.String("uri", tp.uri))
	return nil
}

func (tp *UDPTransport) currConn() net.Conn {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return tp.conn
}

func (tp *UDPTransport) notConnectedErr() error {
	if tp.State() == UDPTransportStateClosed {
		return ErrTransportClosed //errtrace:skip
	}
	return ErrTransportNotConnected //errtrace:skip
}

// Send writes data as a single datagram.
// The context deadline, if any, is applied as the write deadline.
func (tp *UDPTransport) Send(ctx context.Context, data []byte) error {
	conn := tp.currConn()
	if conn == nil {
		return errtrace.Wrap(tp.notConnectedErr())
	}
	if d, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(d); err != nil {
			return errtrace.Wrap(err)
		}
		defer conn.SetWriteDeadline(time.Time{})
	}
	if _, err := conn.Write(data); err != nil {
		return errtrace.Wrap(fmt.Errorf("send to %s: %w", tp.raddr, err))
	}
	return nil
}

// Serve reads datagrams and passes each of them to recv until the context is done
// or the transport gets disconnected.
// The data slice passed to recv is owned by the callee.
func (tp *UDPTransport) Serve(ctx context.Context, recv func(ctx context.Context, data []byte)) error {
	conn := tp.currConn()
	if conn == nil {
		return errtrace.Wrap(tp.notConnectedErr())
	}

	tp.log.LogAttrs(ctx, slog.LevelDebug, "begin serving the connection", slog.Any("connection", conn))
	defer tp.log.LogAttrs(ctx, slog.LevelDebug, "serving the connection finished", slog.Any("connection", conn))

	buf := make([]byte, tp.opts.readBufSize())
	for {
		if err := ctx.Err(); err != nil {
			return errtrace.Wrap(err)
		}
		if err := conn.SetReadDeadline(time.Now().Add(udpReadPoll)); err != nil {
			if errorutil.IsClosedConnErr(err) {
				return nil
			}
			return errtrace.Wrap(err)
		}
		n, err := conn.Read(buf)
		if err != nil {
			switch {
			case errorutil.IsTimeoutErr(err):
				continue
			case errorutil.IsClosedConnErr(err):
				return nil
			default:
				return errtrace.Wrap(err)
			}
		}
		if n == 0 {
			continue
		}
		recv(ctx, bytes.Clone(buf[:n]))
	}
}
