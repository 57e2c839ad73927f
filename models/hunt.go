package models

import "time"

// Hunt groups quests behind a question/answer gate and an optional time limit (minutes).
type Hunt struct {
	ID          string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	Question    string    `json:"question"`
	Answer      string    `json:"-"`
	TimeLimit   *int      `json:"timeLimit,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// UserHunt is hunt progress, created as a side effect of quest enrollment.
type UserHunt struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_hunt" json:"userId"`
	HuntID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_hunt" json:"huntId"`
	Hunt      *Hunt     `gorm:"foreignKey:HuntID;constraint:OnDelete:CASCADE" json:"hunt,omitempty"`
	IsActive  bool      `gorm:"not null" json:"isActive"`
	TimeLimit *int      `json:"timeLimit,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
