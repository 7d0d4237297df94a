package domain

import (
	"time"

	"github.com/google/uuid"
)

// Actor represents a federated identity, local or cached from a remote server
type Actor struct {
	Id                uuid.UUID
	Type              string // Person, Group, Application
	PreferredUsername string
	Host              string
	URL               string
	InboxURL          string
	SharedInboxURL    string // empty when the remote server does not advertise one
	FollowersURL      string
	Local             bool
	CreatedAt         time.Time
}

// Endpoint returns the inbox deliveries to this actor should target.
// The shared inbox wins so that one remote server gets one copy.
func (a *Actor) Endpoint() string {
	if a.SharedInboxURL != "" {
		return a.SharedInboxURL
	}
	return a.InboxURL
}

type FollowState string

const (
	FollowPending  FollowState = "pending"
	FollowAccepted FollowState = "accepted"
)

// Follow represents a follow relationship
type Follow struct {
	Id            uuid.UUID
	ActorId       uuid.UUID // the follower
	TargetActorId uuid.UUID // the actor being followed
	URI           string    // ActivityPub Follow activity URI
	State         FollowState
	CreatedAt     time.Time
}

// Activity is an entry of the inbound activities log, used for deduplication
type Activity struct {
	Id           uuid.UUID
	ActivityURI  string
	ActivityType string
	ActorURI     string
	ObjectURI    string
	RawJSON      string
	CreatedAt    time.Time
}
