// File: rtl/doc.go
// License: Apache-2.0

// Package rtl implements the request transmission layer: it turns an
// unreliable, single-stream, ack-based packet transport into a reliable,
// concurrent request/response messaging facility.
//
// Requests pass through a FIFO submission queue, a bounded pending set
// and the downward transport; responses and unsolicited events are
// demultiplexed back by request id. A timeout reaper, race-tolerant
// cancellation and an ordered flush barrier operate concurrently on the
// same structures. For every request the completion callback fires
// exactly once, regardless of which path (ack/response, timeout, cancel,
// shutdown) wins.
package rtl
