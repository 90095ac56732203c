// Package sip implements the admission gate for inbound SIP messages (RFC 3261).
//
// Every message received from the network passes through [SanityChecker] before it
// reaches the transaction layer. Messages missing mandatory headers, retransmissions
// of requests already being processed and responses with extra Via headers are dropped
// silently. Requests with an unsupported To URI scheme, loop-backs, merged requests and
// requests with a truncated body are answered with 416, 482 or 400 and dropped.
//
// [Endpoint] ties the checker to transports: it parses raw packets with [ParsePacket],
// runs the inbound interceptor chain and delivers accepted messages to a [MessageReceiver].
package sip

//go:generate go tool errtrace -w .
