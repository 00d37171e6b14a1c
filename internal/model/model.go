package model

import "time"

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is one of the two supported tiers.
func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleAdmin
}

const (
	StatusPending  = "pending"
	StatusVerified = "verified"
)

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Achievement struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	Category    string
	Status      string
	VerifiedBy  *int64
	CreatedAt   time.Time
}

// PendingAchievement carries the owner's name and email alongside the
// achievement for the admin review queue.
type PendingAchievement struct {
	Achievement
	UserName  string
	UserEmail string
}

type Skill struct {
	ID        int64
	UserID    int64
	Name      string
	Level     int
	CreatedAt time.Time
}

type Notification struct {
	ID        int64
	UserID    int64
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}

type Activity struct {
	Type      string
	Title     string
	UserName  string
	CreatedAt time.Time
}

type Stats struct {
	TotalUsers           int64
	TotalAchievements    int64
	PendingVerifications int64
	RecentActivities     []Activity
}
