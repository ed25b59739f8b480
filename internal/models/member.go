package models

// MemberStatus is the admission state of a member.
type MemberStatus string

const (
	// MemberPending members have asked to join and wait for approval.
	MemberPending MemberStatus = "pending"
	// MemberActive members take part in expenses and approvals.
	MemberActive MemberStatus = "active"
)

// Member represents a person in a group.
//
// Members are never deleted. A member starts pending (except the group founder)
// and becomes active once every active member has approved the admission.
type Member struct {
	// ID is the unique identifier for the member (UUID format).
	ID string `json:"id"`

	// Name is the display name of the member.
	Name string `json:"name"`

	// AvatarURL points at the member's profile picture. May be empty.
	AvatarURL string `json:"avatarUrl,omitempty"`

	// Status is the admission state.
	Status MemberStatus `json:"status"`

	// Approvals holds the ids of active members who approved this member's admission.
	// Frozen once Status is MemberActive.
	Approvals IDSet `json:"approvals"`
}

// IsActive reports whether the member has been admitted.
func (m Member) IsActive() bool {
	return m.Status == MemberActive
}

// Clone returns a deep copy of the member.
func (m Member) Clone() Member {
	m.Approvals = m.Approvals.Clone()
	return m
}

// Snapshot freezes the member's display fields for an activity entry.
func (m Member) Snapshot() ActorSnapshot {
	return ActorSnapshot{
		MemberID:  m.ID,
		Name:      m.Name,
		AvatarURL: m.AvatarURL,
	}
}
