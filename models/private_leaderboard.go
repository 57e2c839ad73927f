package models

import "time"

const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

type PrivateLeaderboard struct {
	ID          string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	OwnerUserID string     `gorm:"type:uuid;not null;index" json:"ownerUserId"`
	Name        string     `gorm:"not null" json:"name"`
	Description *string    `json:"description,omitempty"`
	CoverImage  *string    `json:"coverImage,omitempty"`
	PeriodType  *string    `json:"periodType,omitempty"`
	PeriodStart *time.Time `json:"periodStart,omitempty"`
	PeriodEnd   *time.Time `json:"periodEnd,omitempty"`
	IsActive    bool       `gorm:"not null" json:"isActive"`
	InviteCode  string     `gorm:"uniqueIndex;not null" json:"inviteCode"`
	Timestamps
}

// PrivateLeaderboardMember is unique on (leaderboard_id, user_id).
type PrivateLeaderboardMember struct {
	ID            string              `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	LeaderboardID string              `gorm:"type:uuid;not null;uniqueIndex:idx_plb_member" json:"leaderboardId"`
	Leaderboard   *PrivateLeaderboard `gorm:"foreignKey:LeaderboardID;constraint:OnDelete:CASCADE" json:"-"`
	UserID        string              `gorm:"type:uuid;not null;uniqueIndex:idx_plb_member;index" json:"userId"`
	Role          string              `gorm:"not null" json:"role"`
	JoinedAt      time.Time           `gorm:"autoCreateTime" json:"joinedAt"`
}

// Standing is a member's position within a private leaderboard.
type Standing struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Points int64  `json:"points"`
	Rank   int    `json:"rank"`
}
