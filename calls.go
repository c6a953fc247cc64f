package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Call is one audio/video call between two matched users.
type Call struct {
	ID        string     `json:"id"`
	CallerID  string     `json:"caller_id"`
	CalleeID  string     `json:"callee_id"`
	Type      CallType   `json:"type"`
	Status    CallStatus `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// POST /calls {"callee_id": "...", "type": "AUDIO"|"VIDEO"}
func startCallHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(string)

		var req struct {
			CalleeID string `json:"callee_id"`
			Type     string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.CalleeID == "" || req.CalleeID == userID {
			writeError(w, http.StatusBadRequest, "invalid_callee")
			return
		}

		// Calls only happen inside a match
		var ok int
		err := db.QueryRow(`
            SELECT 1 FROM matches
            WHERE user1_id = LEAST($1, $2) AND user2_id = GREATEST($1, $2)
            LIMIT 1
        `, userID, req.CalleeID).Scan(&ok)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusForbidden, "not_matched")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		call := Call{
			ID:       uuid.New().String(),
			CallerID: userID,
			CalleeID: req.CalleeID,
			Type:     parseCallType(req.Type),
			Status:   CallRinging,
		}
		err = db.QueryRow(`
            INSERT INTO calls (id, caller_id, callee_id, call_type, status)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING started_at
        `, call.ID, call.CallerID, call.CalleeID, string(call.Type), string(call.Status)).Scan(&call.StartedAt)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "call_error")
			return
		}

		notificationHub.sendToUser(req.CalleeID, ServerEvent{Type: "call", From: userID, Data: call})
		writeJSON(w, http.StatusCreated, call)
	})
}

// POST /calls/{id}/end {"status": "ENDED"|"MISSED"|"REJECTED"|...}
// A MISSED outcome produces a CALL_MISSED notification for the callee.
func endCallHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "calls" || parts[2] != "end" {
			http.NotFound(w, r)
			return
		}
		callID := parts[1]
		userID := r.Context().Value(userIDKey).(string)

		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		status := parseCallStatus(req.Status)

		var callerID, calleeID string
		err := db.QueryRow(`
            UPDATE calls SET status = $1, ended_at = NOW()
            WHERE id = $2 AND (caller_id = $3 OR callee_id = $3) AND ended_at IS NULL
            RETURNING caller_id, callee_id
        `, string(status), callID, userID).Scan(&callerID, &calleeID)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "not_found")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "call_error")
			return
		}

		if status == CallMissed {
			notifyUser(db, calleeID, NotificationCallMissed, "You missed a call", callerID, ActionOpenChat)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
	})
}

// callsRouter dispatches POST /calls and POST /calls/{id}/end.
func callsRouter(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		switch {
		case len(parts) == 1:
			startCallHandler(db).ServeHTTP(w, r)
		case len(parts) == 3 && parts[2] == "end":
			endCallHandler(db).ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}
