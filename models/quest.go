package models

import (
	"strconv"
	"strings"
	"time"
)

type Quest struct {
	ID            string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name          string    `gorm:"not null" json:"name"`
	Description   string    `json:"description"`
	CollectibleID *string   `gorm:"type:uuid" json:"collectibleId,omitempty"`
	LocationID    string    `gorm:"type:uuid;not null;index" json:"locationId"`
	Location      *Location `gorm:"foreignKey:LocationID;constraint:OnDelete:CASCADE" json:"location,omitempty"`
	CreatedBy     string    `gorm:"type:uuid" json:"createdBy"`
	// Stored as text; see AwardablePoints.
	PointsAchievable string    `gorm:"not null;default:'0'" json:"pointsAchievable"`
	IsActive         bool      `gorm:"not null" json:"isActive"`
	HuntID           *string   `gorm:"type:uuid;index" json:"huntId,omitempty"`
	Hunt             *Hunt     `gorm:"foreignKey:HuntID;constraint:OnDelete:SET NULL" json:"-"`
	ImportKey        *string   `gorm:"uniqueIndex" json:"-"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// AwardablePoints parses the leading integer of PointsAchievable.
// Anything unparsable or negative awards nothing.
func (q *Quest) AwardablePoints() int64 {
	s := strings.TrimSpace(q.PointsAchievable)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// UserQuest is one enrollment. IsComplete flips false -> true exactly once.
type UserQuest struct {
	ID          string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID      string     `gorm:"type:uuid;not null;uniqueIndex:idx_user_quest" json:"userId"`
	QuestID     string     `gorm:"type:uuid;not null;uniqueIndex:idx_user_quest" json:"questId"`
	Quest       *Quest     `gorm:"foreignKey:QuestID;constraint:OnDelete:CASCADE" json:"quest,omitempty"`
	Step        string     `gorm:"not null;default:'0'" json:"step"`
	IsComplete  bool       `gorm:"not null;index" json:"isComplete"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}
