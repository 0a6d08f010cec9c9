package organisation

import "time"

type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierPro        SubscriptionTier = "pro"
	TierEnterprise SubscriptionTier = "enterprise"
)

func (t SubscriptionTier) IsValid() bool {
	switch t {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}

// Organisation is the tenant root. A non-nil DeletedAt hides it from every read.
type Organisation struct {
	ID               string
	Name             string
	Slug             string
	Description      *string
	ContactEmail     *string
	Website          *string
	SubscriptionTier SubscriptionTier
	Settings         map[string]any
	OwnerID          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// Membership is an organisation seen from one of its members.
type Membership struct {
	Organisation
	Role      string
	JoinedAt  time.Time
	IsCurrent bool
}

// DeleteResult reports what the cascade touched.
type DeleteResult struct {
	MembersRemoved     int64
	PointersCleared    int64
	ProjectsArchived   int64
	TeamsArchived      int64
	InvitationsRevoked int64
}
