package main

import "time"

// UserRecord is an immutable snapshot of a user as the scoring code sees it.
// It is assembled by loadUserRecord from the users/profiles/rejections/matches
// tables and passed by value into the pure engines.
type UserRecord struct {
	ID               string          `json:"id"`
	Email            string          `json:"email"`
	DisplayName      string          `json:"display_name"`
	Age              *int            `json:"age,omitempty"`
	Gender           string          `json:"gender"`
	Country          string          `json:"country"`
	City             string          `json:"city"`
	Latitude         *float64        `json:"latitude,omitempty"`
	Longitude        *float64        `json:"longitude,omitempty"`
	Interests        []string        `json:"interests"`
	Preferences      UserPreferences `json:"preferences"`
	RejectedUserIDs  []string        `json:"-"`
	MatchedUserIDs   []string        `json:"-"`
	SubscriptionTier *string         `json:"subscription_tier,omitempty"`
}

// UserPreferences holds the stored matching preferences. Nil fields mean
// "no stored preference" and the scorer falls back to its defaults.
type UserPreferences struct {
	MinAge           *int    `json:"min_age,omitempty"`
	MaxAge           *int    `json:"max_age,omitempty"`
	GenderPreference *string `json:"gender_preference,omitempty"`
}

// MatchResult pairs a candidate with the computed match percentage.
type MatchResult struct {
	User       UserRecord `json:"user"`
	Percentage int        `json:"match_percentage"`
}

// NotificationRecord is a pending notification for one user.
// RelatedUserID is empty when the notification has no originating user.
type NotificationRecord struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Type          NotificationType       `json:"type"`
	Content       string                 `json:"content"`
	RelatedUserID string                 `json:"related_user_id,omitempty"`
	ActionType    NotificationActionType `json:"action_type"`
	IsRead        bool                   `json:"is_read"`
	CreatedAt     time.Time              `json:"created_at"`
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
