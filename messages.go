package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Message is a direct message between two matched users.
type Message struct {
	ID          int64     `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Body        string    `json:"body"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// saveMessage stores a message after checking the two users are matched.
// Messaging outside a match is refused outright.
func saveMessage(db *sql.DB, fromUserID, toUserID, body string) (Message, error) {
	var ok int
	err := db.QueryRow(`
        SELECT 1 FROM matches
        WHERE user1_id = LEAST($1, $2) AND user2_id = GREATEST($1, $2)
        LIMIT 1
    `, fromUserID, toUserID).Scan(&ok)
	if err != nil {
		if err == sql.ErrNoRows {
			return Message{}, fmt.Errorf("no match between users")
		}
		return Message{}, err
	}

	msg := Message{SenderID: fromUserID, RecipientID: toUserID, Body: body}
	err = db.QueryRow(`
        INSERT INTO messages (sender_id, recipient_id, content)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `, fromUserID, toUserID, body).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

// POST /messages {"to": "<user id>", "body": "..."}
func sendMessageHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(string)

		var req struct {
			To   string `json:"to"`
			Body string `json:"body"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		req.Body = strings.TrimSpace(req.Body)
		if req.To == "" || req.Body == "" {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}

		msg, err := saveMessage(db, userID, req.To, req.Body)
		if err != nil {
			if strings.Contains(err.Error(), "no match") {
				writeError(w, http.StatusForbidden, "not_matched")
				return
			}
			writeError(w, http.StatusInternalServerError, "message_error")
			return
		}

		// Every message produces a MESSAGE notification for the recipient;
		// the prioritizer and the high-priority classifier take it from there.
		sender, _ := loadUserRecord(db, userID)
		content := sender.DisplayName
		if content == "" {
			content = "Someone"
		}
		notifyUser(db, req.To, NotificationMessage, content+" sent you a message", userID, ActionOpenChat)

		// Live relay to the recipient and echo to the sender
		evt := ServerEvent{Type: "message", From: userID, Data: msg}
		notificationHub.sendToUser(req.To, evt)
		notificationHub.sendToUser(userID, evt)

		writeJSON(w, http.StatusCreated, msg)
	})
}

// GET /messages/{peerId}?limit=50&before=2025-09-16T08:00:00Z
func messageHistoryHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(string)

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 2 || parts[0] != "messages" {
			http.NotFound(w, r)
			return
		}
		peerID := parts[1]

		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		var beforePtr *time.Time
		if s := r.URL.Query().Get("before"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				beforePtr = &t
			}
		}

		msgs, err := getMessages(db, userID, peerID, limit, beforePtr)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "message_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string][]Message{"messages": msgs})
	})
}

// GET /messages - Conversation summaries for the sidebar: one entry per
// matched peer with an unread count, newest conversation first.
func conversationsHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(string)

		rows, err := db.Query(`
            SELECT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS peer,
                   MAX(created_at) AS last_message_at
            FROM messages
            WHERE sender_id = $1 OR recipient_id = $1
            GROUP BY peer
            ORDER BY last_message_at DESC
        `, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		defer rows.Close()

		type conversation struct {
			PeerID        string    `json:"peer_id"`
			DisplayName   string    `json:"display_name"`
			LastMessageAt time.Time `json:"last_message_at"`
			UnreadCount   int       `json:"unread_count"`
		}
		var convs []conversation
		for rows.Next() {
			var c conversation
			if err := rows.Scan(&c.PeerID, &c.LastMessageAt); err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			convs = append(convs, c)
		}
		if err := rows.Err(); err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		// Batch the per-peer lookups through the request's dataloaders
		if loaders := GetDataLoadersFromContext(r.Context()); loaders != nil {
			for i := range convs {
				if summary, err := loaders.UserSummaryLoader.Load(r.Context(), convs[i].PeerID)(); err == nil && summary != nil {
					convs[i].DisplayName = summary.DisplayName
				}
				if count, err := loaders.UnreadCountLoader.Load(r.Context(), userID+"|"+convs[i].PeerID)(); err == nil {
					convs[i].UnreadCount = count
				}
			}
		}

		if convs == nil {
			convs = []conversation{}
		}
		writeJSON(w, http.StatusOK, map[string][]conversation{"conversations": convs})
	})
}

func getMessages(db *sql.DB, userID, peerID string, limit int, before *time.Time) ([]Message, error) {
	q := `
        SELECT id, sender_id, recipient_id, content, is_read, created_at
        FROM messages
        WHERE ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
          AND ($3::timestamptz IS NULL OR created_at < $3)
        ORDER BY created_at DESC
        LIMIT $4`

	var rows *sql.Rows
	var err error
	if before != nil {
		rows, err = db.Query(q, userID, peerID, *before, limit)
	} else {
		rows, err = db.Query(q, userID, peerID, nil, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		// Don't mark as read if the query failed
		return nil, err
	}

	// Fetching history marks the peer's messages as read
	_, _ = db.Exec(`
        UPDATE messages SET is_read = TRUE
        WHERE sender_id = $2 AND recipient_id = $1 AND is_read IS FALSE
    `, userID, peerID)

	return msgs, nil
}
