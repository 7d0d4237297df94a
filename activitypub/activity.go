package activitypub

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	ContextActivityStreams = "https://www.w3.org/ns/activitystreams"
	PublicCollection       = "https://www.w3.org/ns/activitystreams#Public"

	// FollowersSuffix ends every followers collection URL. Forwarding relies
	// on it to tell a followers collection apart from an individual actor.
	FollowersSuffix = "/followers"
)

// ErrInvalidActivity is returned for payloads that are not usable activities
var ErrInvalidActivity = errors.New("invalid activity")

// IsFollowersCollection reports whether an addressing entry names the
// followers collection of some actor rather than a single recipient.
func IsFollowersCollection(uri string) bool {
	return strings.HasSuffix(uri, FollowersSuffix)
}

// Addressing is a to/cc field. Peers send either a single URI or a list.
type Addressing []string

func (a *Addressing) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*a = nil
		} else {
			*a = Addressing{single}
		}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*a = list
	return nil
}

// Audience is the resolved addressing of an outbound activity
type Audience struct {
	To []string
	Cc []string
}

// Activity represents a generic ActivityPub activity
type Activity struct {
	Context interface{} `json:"@context,omitempty"`
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Actor   string      `json:"actor"`
	Object  interface{} `json:"object,omitempty"`
	To      Addressing  `json:"to,omitempty"`
	Cc      Addressing  `json:"cc,omitempty"`

	// raw keeps the received bytes so forwarding re-sends them untouched
	raw json.RawMessage
}

// ParseActivity decodes an inbound activity and keeps its original bytes
func ParseActivity(body []byte) (*Activity, error) {
	var activity Activity
	if err := json.Unmarshal(body, &activity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidActivity, err)
	}
	if activity.ID == "" || activity.Type == "" || activity.Actor == "" {
		return nil, fmt.Errorf("%w: missing id, type or actor", ErrInvalidActivity)
	}
	activity.raw = append(json.RawMessage(nil), body...)
	return &activity, nil
}

// Body returns the bytes to deliver: the original payload for received
// activities, the marshalled struct for locally built ones.
func (a *Activity) Body() (json.RawMessage, error) {
	if len(a.raw) > 0 {
		return a.raw, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal activity: %w", err)
	}
	return b, nil
}

// Recipients returns to followed by cc
func (a *Activity) Recipients() []string {
	recipients := make([]string, 0, len(a.To)+len(a.Cc))
	recipients = append(recipients, a.To...)
	return append(recipients, a.Cc...)
}

// ObjectID returns the id of the object, whether it is embedded or a bare URI
func (a *Activity) ObjectID() string {
	return objectID(a.Object)
}

// ObjectType returns the type of an embedded object, empty for bare URIs
func (a *Activity) ObjectType() string {
	if obj, ok := a.Object.(map[string]interface{}); ok {
		t, _ := obj["type"].(string)
		return t
	}
	return ""
}

// InnerActivity returns the embedded object as an activity, for Undo and Accept
func (a *Activity) InnerActivity() (*Activity, bool) {
	obj, ok := a.Object.(map[string]interface{})
	if !ok {
		return nil, false
	}
	inner := &Activity{Object: obj["object"]}
	inner.ID, _ = obj["id"].(string)
	inner.Type, _ = obj["type"].(string)
	inner.Actor, _ = obj["actor"].(string)
	return inner, true
}

// objectField reads a string field of an embedded object
func (a *Activity) objectField(name string) string {
	if obj, ok := a.Object.(map[string]interface{}); ok {
		v, _ := obj[name].(string)
		return v
	}
	return ""
}

func objectID(object interface{}) string {
	switch obj := object.(type) {
	case string:
		return obj
	case map[string]interface{}:
		if id, ok := obj["id"].(string); ok {
			return id
		}
	}
	return ""
}
