package domain

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	Id      uuid.UUID
	Name    string
	ActorId uuid.UUID
	Actor   *Actor
}

type VideoChannel struct {
	Id        uuid.UUID
	Name      string
	AccountId uuid.UUID
	ActorId   uuid.UUID
	Account   *Account
	Actor     *Actor
}

// Video is a piece of content. Remote videos are only a cached copy,
// their authoritative version lives on the origin server.
type Video struct {
	Id          uuid.UUID
	URL         string
	Name        string
	Description string
	ChannelId   uuid.UUID
	Remote      bool
	CreatedAt   time.Time
	Channel     *VideoChannel
}

func (v *Video) IsOwned() bool {
	return !v.Remote
}

// OwnerActor returns the account actor of the preloaded channel chain, or nil
// when the chain was not loaded.
func (v *Video) OwnerActor() *Actor {
	if v.Channel == nil || v.Channel.Account == nil {
		return nil
	}
	return v.Channel.Account.Actor
}

type VideoComment struct {
	Id        uuid.UUID
	URL       string
	VideoId   uuid.UUID
	ActorId   uuid.UUID
	Text      string
	CreatedAt time.Time
	Actor     *Actor
}

// VideoShare records an actor announcing a video
type VideoShare struct {
	Id        uuid.UUID
	URL       string
	ActorId   uuid.UUID
	VideoId   uuid.UUID
	CreatedAt time.Time
}

type Rating string

const (
	RatingLike    Rating = "like"
	RatingDislike Rating = "dislike"
)

type VideoRate struct {
	Id        uuid.UUID
	URL       string
	ActorId   uuid.UUID
	VideoId   uuid.UUID
	Type      Rating
	CreatedAt time.Time
}
