package models

import "time"

// ActorSnapshot is a frozen copy of a member's display fields.
// Later profile edits never rewrite it.
type ActorSnapshot struct {
	MemberID  string `json:"memberId"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// ActivityEntry is one immutable record in a group's audit log.
type ActivityEntry struct {
	// ID is monotonic within the group.
	ID int64 `json:"id"`

	// Text is the action, phrased to follow the actor's name
	// (e.g., `approved expense "Groceries"`).
	Text string `json:"text"`

	// Timestamp is assigned at commit time.
	Timestamp time.Time `json:"timestamp"`

	// Actor is who performed the action, as they were at that moment.
	Actor ActorSnapshot `json:"actor"`
}
