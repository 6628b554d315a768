// Package queue defines the job-queue contract used by the PDF pipeline and
// its SQS-backed implementation. Delivery is at-least-once: a received
// message stays invisible to other consumers for the queue's visibility
// window and reappears if not deleted in time. Consumers must therefore be
// idempotent.
package queue

import "context"

// Message is one received queue entry. ReceiptHandle identifies this
// particular delivery and is required to delete the message.
type Message struct {
	Body          []byte
	ReceiptHandle string
}

// Queue is the client contract for the PDF job queue.
type Queue interface {
	// Send enqueues one message body.
	Send(ctx context.Context, body []byte) error

	// Receive returns up to max messages, blocking up to the configured
	// long-poll wait. An empty slice means the wait elapsed with nothing
	// to do.
	Receive(ctx context.Context, max int32) ([]Message, error)

	// Delete acknowledges a delivery. Failing to call it lets the queue
	// redeliver the message after the visibility timeout.
	Delete(ctx context.Context, receiptHandle string) error
}
