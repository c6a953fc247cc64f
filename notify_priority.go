package main

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Base ranking weight per notification type. MATCH (100) sits above
// PAYMENT_FAILED (95) in the continuous score even though the discrete
// high-priority classifier below always flags PAYMENT_FAILED and only
// conditionally flags MATCH; the two signals are intentionally separate.
var notificationBaseScore = map[NotificationType]float64{
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

// Keywords whose presence in the content raises the score. Case-sensitive
// substring match, as the original product did it.
var boostKeywords = []string{"premium", "subscription", "verified"}

// prioritizeNotifications filters out types the user disabled (absent from
// prefs means enabled), scores the rest, and returns them ordered by
// descending score. Ties keep the filtered input order (stable sort).
// The caller supplies now so recency scoring stays deterministic.
func prioritizeNotifications(notifications []NotificationRecord, user UserRecord, prefs map[NotificationType]bool, now time.Time) []NotificationRecord {
	filtered := make([]NotificationRecord, 0, len(notifications))
	for _, n := range notifications {
		if enabled, ok := prefs[n.Type]; ok && !enabled {
			continue
		}
		filtered = append(filtered, n)
	}

	scores := make([]float64, len(filtered))
	for i, n := range filtered {
		scores[i] = notificationScore(n, user, now)
	}

	order := make([]int, len(filtered))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	out := make([]NotificationRecord, len(filtered))
	for i, idx := range order {
		out[i] = filtered[idx]
	}
	return out
}

// notificationScore combines the type base weight, recency decay,
// engagement and content signals, and the subscription context bonus.
func notificationScore(n NotificationRecord, user UserRecord, now time.Time) float64 {
	score := notificationBaseScore[n.Type]

	// Recency degrades linearly to zero by 50 hours, never negative.
	ageInHours := now.Sub(n.CreatedAt).Hours()
	score += math.Max(0, 100-ageInHours*2)

	if n.RelatedUserID != "" {
		score += interactionScore(user, n.RelatedUserID)
	}

	for _, kw := range boostKeywords {
		if strings.Contains(n.Content, kw) {
			score += 20.0
			break
		}
	}

	// Subscribers tend to act on match notifications.
	if user.SubscriptionTier != nil && n.Type == NotificationMatch {
		score += 10.0
	}

	return score
}

// interactionScore stands in for a per-pair interaction metric (messages
// exchanged, recency of contact, call history). Until that signal is wired
// up it returns a flat affinity constant.
func interactionScore(user UserRecord, otherUserID string) float64 {
	return 25.0
}

// isHighPriority decides whether a notification should be surfaced
// immediately. This is a fixed rule set, not a threshold on the ranking
// score above.
func isHighPriority(n NotificationRecord, user UserRecord) bool {
	// Messages from matched users
	if n.Type == NotificationMessage && containsID(user.MatchedUserIDs, n.RelatedUserID) {
		return true
	}
	if n.Type == NotificationCallMissed {
		return true
	}
	if n.Type == NotificationPaymentFailed {
		return true
	}
	// Free-tier users get fewer matches, so each one is surfaced immediately
	if n.Type == NotificationMatch && user.SubscriptionTier == nil {
		return true
	}
	return false
}
