package activitypub

import (
	"context"
	"fmt"
	"log"

	"github.com/deemkeen/fanout/domain"
	"github.com/google/uuid"
)

// JobQueue accepts delivery jobs. Signing, HTTP delivery and retries belong
// to whatever consumes the queue.
type JobQueue interface {
	CreateJob(ctx context.Context, job *domain.Job) error
}

// Unicast enqueues one delivery of body to uri. The uri is not validated.
func Unicast[T any](ctx context.Context, jobs JobQueue, body T, byActor *domain.Actor, uri string) error {
	log.Printf("Unicast: Creating unicast job to %s", uri)

	job, err := domain.NewJob(domain.JobUnicast, domain.UnicastPayload[T]{
		URI:              uri,
		SignatureActorId: signatureActorId(byActor),
		Body:             body,
	})
	if err != nil {
		return err
	}
	if err := jobs.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue unicast job: %w", err)
	}
	return nil
}

// Broadcast enqueues a single job delivering body to every uri. It reports
// whether a job was created: no uris, no job.
func Broadcast[T any](ctx context.Context, jobs JobQueue, body T, byActor *domain.Actor, uris []string) (bool, error) {
	if len(uris) == 0 {
		return false, nil
	}

	log.Printf("Broadcast: Creating broadcast job to %d inboxes", len(uris))

	job, err := domain.NewJob(domain.JobBroadcast, domain.BroadcastPayload[T]{
		URIs:             uris,
		SignatureActorId: signatureActorId(byActor),
		Body:             body,
	})
	if err != nil {
		return false, err
	}
	if err := jobs.CreateJob(ctx, job); err != nil {
		return false, fmt.Errorf("failed to enqueue broadcast job: %w", err)
	}
	return true, nil
}

// nil means the job engine signs with the server actor
func signatureActorId(actor *domain.Actor) *uuid.UUID {
	if actor == nil {
		return nil
	}
	id := actor.Id
	return &id
}
