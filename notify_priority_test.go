package main

import (
	"math"
	"testing"
	"time"
)

func TestNotificationScore(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := UserRecord{ID: "u1"}

	t.Run("Fifty hour old SYSTEM notification scores its base only", func(t *testing.T) {
		n := NotificationRecord{
			Type:      NotificationSystem,
			Content:   "system update",
			CreatedAt: now.Add(-50 * time.Hour),
		}
		// Recency is exhausted at 50 hours, no related user, no keyword
		if got := notificationScore(n, user, now); got != 40 {
			t.Errorf("Expected 40, got %f", got)
		}
	})

	t.Run("Fresh notification gets the full recency bonus", func(t *testing.T) {
		n := NotificationRecord{Type: NotificationSystem, CreatedAt: now}
		if got := notificationScore(n, user, now); got != 140 {
			t.Errorf("Expected base 40 + recency 100 = 140, got %f", got)
		}
	})

	t.Run("Recency decays linearly and never goes negative", func(t *testing.T) {
		tenHours := NotificationRecord{Type: NotificationSystem, CreatedAt: now.Add(-10 * time.Hour)}
		if got := notificationScore(tenHours, user, now); math.Abs(got-120) > 1e-9 {
			t.Errorf("Expected 40 + 80 = 120 at 10 hours, got %f", got)
		}
		ancient := NotificationRecord{Type: NotificationSystem, CreatedAt: now.Add(-500 * time.Hour)}
		if got := notificationScore(ancient, user, now); got != 40 {
			t.Errorf("Expected recency floor of 0 (total 40) at 500 hours, got %f", got)
		}
	})

	t.Run("Related user adds the engagement bonus", func(t *testing.T) {
		with := NotificationRecord{Type: NotificationSystem, RelatedUserID: "u2", CreatedAt: now.Add(-50 * time.Hour)}
		without := NotificationRecord{Type: NotificationSystem, CreatedAt: now.Add(-50 * time.Hour)}
		if got := notificationScore(with, user, now) - notificationScore(without, user, now); got != 25 {
			t.Errorf("Expected +25 for a related user, got %f", got)
		}
	})

	t.Run("Keyword bonus applies once and is case sensitive", func(t *testing.T) {
		old := now.Add(-50 * time.Hour)
		one := NotificationRecord{Type: NotificationSystem, Content: "Go premium today", CreatedAt: old}
		if got := notificationScore(one, user, now); got != 60 {
			t.Errorf("Expected 40 + 20 for one keyword, got %f", got)
		}
		two := NotificationRecord{Type: NotificationSystem, Content: "premium subscription offer", CreatedAt: old}
		if got := notificationScore(two, user, now); got != 60 {
			t.Errorf("Expected the keyword bonus once even with two keywords, got %f", got)
		}
		upper := NotificationRecord{Type: NotificationSystem, Content: "PREMIUM OFFER", CreatedAt: old}
		if got := notificationScore(upper, user, now); got != 40 {
			t.Errorf("Expected no bonus for upper-case keyword, got %f", got)
		}
		embedded := NotificationRecord{Type: NotificationSystem, Content: "You are now verified!", CreatedAt: old}
		if got := notificationScore(embedded, user, now); got != 60 {
			t.Errorf("Expected substring match to count, got %f", got)
		}
	})

	t.Run("Subscriber bonus applies only to MATCH", func(t *testing.T) {
		subscriber := UserRecord{ID: "u1", SubscriptionTier: strPtr("PREMIUM")}
		old := now.Add(-50 * time.Hour)
		match := NotificationRecord{Type: NotificationMatch, CreatedAt: old}
		if got := notificationScore(match, subscriber, now); got != 110 {
			t.Errorf("Expected 100 + 10 for subscriber MATCH, got %f", got)
		}
		if got := notificationScore(match, user, now); got != 100 {
			t.Errorf("Expected 100 for free-tier MATCH, got %f", got)
		}
		message := NotificationRecord{Type: NotificationMessage, CreatedAt: old}
		if got := notificationScore(message, subscriber, now); got != 90 {
			t.Errorf("Expected no subscriber bonus on MESSAGE, got %f", got)
		}
	})

	t.Run("Base score per type", func(t *testing.T) {
		old := now.Add(-50 * time.Hour)
		expected := map[NotificationType]float64{
			NotificationMatch:                100,
			NotificationPaymentFailed:        95,
			NotificationMessage:              90,
			NotificationCallMissed:           85,
			NotificationVerificationApproved: 80,
			NotificationSubscriptionExpiring: 75,
			NotificationPaymentSuccess:       70,
			NotificationProfileView:          60,
			NotificationAppUpdate:            50,
			NotificationSystem:               40,
		}
		for typ, want := range expected {
			n := NotificationRecord{Type: typ, CreatedAt: old}
			if got := notificationScore(n, user, now); got != want {
				t.Errorf("Type %s: expected %f, got %f", typ, want, got)
			}
		}
	})
}

func TestPrioritizeNotifications(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := UserRecord{ID: "u1"}

	t.Run("Disabled types are dropped, absent prefs mean enabled", func(t *testing.T) {
		notifications := []NotificationRecord{
			{ID: "n1", Type: NotificationMessage, CreatedAt: now},
			{ID: "n2", Type: NotificationSystem, CreatedAt: now},
			{ID: "n3", Type: NotificationMatch, CreatedAt: now},
		}
		prefs := map[NotificationType]bool{
			NotificationSystem: false,
			NotificationMatch:  true,
		}
		got := prioritizeNotifications(notifications, user, prefs, now)
		if len(got) != 2 {
			t.Fatalf("Expected 2 notifications after filtering, got %d", len(got))
		}
		for _, n := range got {
			if n.Type == NotificationSystem {
				t.Error("Expected SYSTEM to be filtered out")
			}
		}
	})

	t.Run("Ordered by descending score", func(t *testing.T) {
		notifications := []NotificationRecord{
			{ID: "old-system", Type: NotificationSystem, CreatedAt: now.Add(-60 * time.Hour)},
			{ID: "fresh-match", Type: NotificationMatch, CreatedAt: now},
			{ID: "fresh-update", Type: NotificationAppUpdate, CreatedAt: now},
		}
		got := prioritizeNotifications(notifications, user, nil, now)
		if len(got) != 3 {
			t.Fatalf("Expected 3 notifications, got %d", len(got))
		}
		wantOrder := []string{"fresh-match", "fresh-update", "old-system"}
		for i, id := range wantOrder {
			if got[i].ID != id {
				t.Errorf("Position %d: expected %s, got %s", i, id, got[i].ID)
			}
		}
	})

	t.Run("Recency can outrank a higher base type", func(t *testing.T) {
		notifications := []NotificationRecord{
			{ID: "stale-match", Type: NotificationMatch, CreatedAt: now.Add(-50 * time.Hour)}, // 100
			{ID: "fresh-message", Type: NotificationMessage, CreatedAt: now},                  // 190
		}
		got := prioritizeNotifications(notifications, user, nil, now)
		if got[0].ID != "fresh-message" {
			t.Errorf("Expected the fresh message first, got %s", got[0].ID)
		}
	})

	t.Run("Ties keep input order", func(t *testing.T) {
		created := now.Add(-2 * time.Hour)
		notifications := []NotificationRecord{
			{ID: "a", Type: NotificationSystem, CreatedAt: created},
			{ID: "b", Type: NotificationSystem, CreatedAt: created},
			{ID: "c", Type: NotificationSystem, CreatedAt: created},
		}
		got := prioritizeNotifications(notifications, user, nil, now)
		for i, id := range []string{"a", "b", "c"} {
			if got[i].ID != id {
				t.Errorf("Position %d: expected %s, got %s (stable sort violated)", i, id, got[i].ID)
			}
		}
	})

	t.Run("Empty input gives empty output", func(t *testing.T) {
		got := prioritizeNotifications(nil, user, nil, now)
		if len(got) != 0 {
			t.Errorf("Expected empty result, got %d entries", len(got))
		}
	})
}

func TestIsHighPriority(t *testing.T) {
	freeUser := UserRecord{ID: "u1", MatchedUserIDs: []string{"m1"}}
	subscriber := UserRecord{ID: "u1", MatchedUserIDs: []string{"m1"}, SubscriptionTier: strPtr("PREMIUM")}

	t.Run("Message from a matched user", func(t *testing.T) {
		n := NotificationRecord{Type: NotificationMessage, RelatedUserID: "m1"}
		if !isHighPriority(n, freeUser) {
			t.Error("Expected message from matched user to be high priority")
		}
	})

	t.Run("Message from an unmatched user is not", func(t *testing.T) {
		n := NotificationRecord{Type: NotificationMessage, RelatedUserID: "stranger"}
		if isHighPriority(n, freeUser) {
			t.Error("Expected message from unmatched user to be normal priority")
		}
	})

	t.Run("Message without a related user is not", func(t *testing.T) {
		n := NotificationRecord{Type: NotificationMessage}
		if isHighPriority(n, freeUser) {
			t.Error("Expected message without related user to be normal priority")
		}
	})

	t.Run("Missed calls and failed payments always are", func(t *testing.T) {
		if !isHighPriority(NotificationRecord{Type: NotificationCallMissed}, subscriber) {
			t.Error("Expected CALL_MISSED to be high priority")
		}
		if !isHighPriority(NotificationRecord{Type: NotificationPaymentFailed}, subscriber) {
			t.Error("Expected PAYMENT_FAILED to be high priority")
		}
	})

	t.Run("Match is high priority only for free-tier users", func(t *testing.T) {
		n := NotificationRecord{Type: NotificationMatch}
		if !isHighPriority(n, freeUser) {
			t.Error("Expected MATCH to be high priority without a subscription")
		}
		if isHighPriority(n, subscriber) {
			t.Error("Expected MATCH to be normal priority for subscribers")
		}
	})

	t.Run("Everything else is normal priority", func(t *testing.T) {
		for _, typ := range []NotificationType{
			NotificationVerificationApproved,
			NotificationSubscriptionExpiring,
			NotificationPaymentSuccess,
			NotificationProfileView,
			NotificationAppUpdate,
			NotificationSystem,
		} {
			if isHighPriority(NotificationRecord{Type: typ}, freeUser) {
				t.Errorf("Expected %s to be normal priority", typ)
			}
		}
	})
}
