package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	JobUnicast   JobType = "activitypub-http-unicast"
	JobBroadcast JobType = "activitypub-http-broadcast"
)

// Job is a delivery unit handed to the job engine. It is never mutated
// once created apart from the engine's own retry bookkeeping.
type Job struct {
	Id          uuid.UUID
	Type        JobType
	Payload     json.RawMessage
	Attempts    int
	NextRetryAt time.Time
	CreatedAt   time.Time
}

// UnicastPayload targets a single inbox
type UnicastPayload[T any] struct {
	URI              string     `json:"uri"`
	SignatureActorId *uuid.UUID `json:"signatureActorId,omitempty"`
	Body             T          `json:"body"`
}

// BroadcastPayload carries one body for many inboxes
type BroadcastPayload[T any] struct {
	URIs             []string   `json:"uris"`
	SignatureActorId *uuid.UUID `json:"signatureActorId,omitempty"`
	Body             T          `json:"body"`
}

// NewJob marshals payload into a fresh job of the given type
func NewJob(jobType JobType, payload any) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", jobType, err)
	}
	now := time.Now()
	return &Job{
		Id:          uuid.New(),
		Type:        jobType,
		Payload:     raw,
		NextRetryAt: now,
		CreatedAt:   now,
	}, nil
}

// DecodePayload unmarshals the job payload into T
func DecodePayload[T any](job *Job) (T, error) {
	var payload T
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to decode %s payload: %w", job.Type, err)
	}
	return payload, nil
}
