package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestActorEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		actor    Actor
		expected string
	}{
		{"shared inbox preferred", Actor{InboxURL: "https://a.example/users/alice/inbox", SharedInboxURL: "https://a.example/inbox"}, "https://a.example/inbox"},
		{"inbox fallback", Actor{InboxURL: "https://a.example/users/alice/inbox"}, "https://a.example/users/alice/inbox"},
		{"nothing", Actor{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.actor.Endpoint(); got != tt.expected {
				t.Errorf("Endpoint() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFollowStates(t *testing.T) {
	follow := Follow{
		Id:            uuid.New(),
		ActorId:       uuid.New(),
		TargetActorId: uuid.New(),
		URI:           "https://a.example/follows/1",
		State:         FollowPending,
	}

	if follow.State != "pending" {
		t.Errorf("Expected State 'pending', got '%s'", follow.State)
	}
	if FollowAccepted != "accepted" {
		t.Errorf("Expected FollowAccepted 'accepted', got '%s'", FollowAccepted)
	}
}
