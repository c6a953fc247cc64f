package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// loadNotifications returns the user's pending (unread) notifications in
// creation order. The prioritizer reorders them; ties keep this order.
func loadNotifications(db *sql.DB, userID string) ([]NotificationRecord, error) {
	rows, err := db.Query(`
        SELECT id, user_id, type, content, COALESCE(related_user_id, ''), action_type, is_read, created_at
        FROM notifications
        WHERE user_id = $1 AND is_read = FALSE
        ORDER BY created_at, id
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NotificationRecord
	for rows.Next() {
		var n NotificationRecord
		var typeStr, actionStr string
		if err := rows.Scan(&n.ID, &n.UserID, &typeStr, &n.Content, &n.RelatedUserID, &actionStr, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = parseNotificationType(typeStr)
		n.ActionType = parseNotificationActionType(actionStr)
		out = append(out, n)
	}
	return out, rows.Err()
}

// loadNotificationPrefs returns the per-type enable map. Types without a
// row are absent from the map, which the prioritizer treats as enabled.
func loadNotificationPrefs(db *sql.DB, userID string) (map[NotificationType]bool, error) {
	rows, err := db.Query(`
        SELECT type, enabled FROM notification_preferences WHERE user_id = $1
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := make(map[NotificationType]bool)
	for rows.Next() {
		var typeStr string
		var enabled bool
		if err := rows.Scan(&typeStr, &enabled); err != nil {
			return nil, err
		}
		prefs[parseNotificationType(typeStr)] = enabled
	}
	return prefs, rows.Err()
}

// GET /notifications - Pending notifications, most urgent first
func notificationsHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(string)

		user, err := loadUserRecord(db, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		pending, err := loadNotifications(db, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "notification_error")
			return
		}
		prefs, err := loadNotificationPrefs(db, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "notification_error")
			return
		}

		ordered := prioritizeNotifications(pending, user, prefs, time.Now())

		type notificationEntry struct {
			NotificationRecord
			HighPriority bool `json:"high_priority"`
		}
		out := make([]notificationEntry, 0, len(ordered))
		for _, n := range ordered {
			out = append(out, notificationEntry{NotificationRecord: n, HighPriority: isHighPriority(n, user)})
		}
		writeJSON(w, http.StatusOK, map[string][]notificationEntry{"notifications": out})
	})
}

// POST /notifications/{id}/read
func notificationReadHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "notifications" || parts[2] != "read" {
			http.NotFound(w, r)
			return
		}
		userID := r.Context().Value(userIDKey).(string)

		res, err := db.Exec(`
            UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
        `, parts[1], userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "notification_error")
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// notificationsRouter dispatches /notifications/{id}/read.
func notificationsRouter(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) == 3 && parts[2] == "read" {
			notificationReadHandler(db).ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	}
}

// GET & PUT /me/notification-preferences
func notificationPrefsHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(string)

		switch r.Method {
		case http.MethodGet:
			prefs, err := loadNotificationPrefs(db, userID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			// Fill in the implicit "enabled" defaults so clients see the
			// whole map.
			full := make(map[NotificationType]bool, len(notificationTypes))
			for _, t := range notificationTypes {
				full[t] = true
			}
			for t, enabled := range prefs {
				full[t] = enabled
			}
			writeJSON(w, http.StatusOK, map[string]map[NotificationType]bool{"preferences": full})

		case http.MethodPut:
			var req map[string]bool
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_json")
				return
			}
			for typeStr, enabled := range req {
				t := parseNotificationType(typeStr)
				_, err := db.Exec(`
                    INSERT INTO notification_preferences (user_id, type, enabled)
                    VALUES ($1, $2, $3)
                    ON CONFLICT (user_id, type) DO UPDATE SET enabled = EXCLUDED.enabled
                `, userID, string(t), enabled)
				if err != nil {
					writeError(w, http.StatusInternalServerError, "preference_error")
					log.Println("Error saving notification preference:", err)
					return
				}
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
		}
	})
}

// notifyUser persists a notification and, when the recipient's own record
// classifies it as high priority, pushes it over the WebSocket hub. Errors
// are logged, never surfaced: notifications are best-effort side effects.
func notifyUser(db *sql.DB, userID string, typ NotificationType, content, relatedUserID string, action NotificationActionType) {
	n := NotificationRecord{
		ID:            uuid.New().String(),
		UserID:        userID,
		Type:          typ,
		Content:       content,
		RelatedUserID: relatedUserID,
		ActionType:    action,
		CreatedAt:     time.Now(),
	}

	var related interface{}
	if relatedUserID != "" {
		related = relatedUserID
	}
	_, err := db.Exec(`
        INSERT INTO notifications (id, user_id, type, content, related_user_id, action_type, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, n.ID, n.UserID, string(n.Type), n.Content, related, string(n.ActionType), n.CreatedAt)
	if err != nil {
		log.Println("Error saving notification:", err)
		return
	}

	recipient, err := loadUserRecord(db, userID)
	if err != nil {
		log.Println("Error loading notification recipient:", err)
		return
	}
	if isHighPriority(n, recipient) {
		notificationHub.sendToUser(userID, ServerEvent{Type: "notification", Data: n})
	}
}
