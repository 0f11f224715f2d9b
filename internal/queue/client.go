package queue

import (
	"context"
	"errors"
)

// QueueName is the list the processing worker pops jobs from.
const QueueName = "upload_queue"

// ErrDisabled is returned by Disabled for every enqueue.
var ErrDisabled = errors.New("queue backend disabled")

// Client hands jobs to a queue backend. Transport failures are returned
// wrapped; callers decide whether they are fatal.
type Client interface {
	Enqueue(ctx context.Context, queueName string, job Job) error
}

// Disabled is a Client for deployments without a worker tier.
type Disabled struct{}

// Enqueue always fails with ErrDisabled.
func (Disabled) Enqueue(context.Context, string, Job) error { return ErrDisabled }

var _ Client = Disabled{}
