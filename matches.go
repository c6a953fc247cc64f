package main

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"strings"
)

const defaultMinMatchPercentage = 50

// loadCandidatePool returns every user with a complete profile who is not
// already matched with the requesting user. Rejection filtering is left to
// the scorer (a rejected candidate scores 0 and falls below any sensible
// threshold).
func loadCandidatePool(db *sql.DB, userID string) ([]UserRecord, error) {
	rows, err := db.Query(`
        SELECT u.id
        FROM users u
        JOIN profiles p ON p.user_id = u.id
        WHERE u.id <> $1
          AND p.display_name <> '' AND p.age IS NOT NULL AND p.gender <> ''
          AND NOT EXISTS (
              SELECT 1 FROM matches m
              WHERE (m.user1_id = $1 AND m.user2_id = u.id)
                 OR (m.user2_id = $1 AND m.user1_id = u.id)
          )
        ORDER BY u.created_at
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	candidates := make([]UserRecord, 0, len(ids))
	for _, id := range ids {
		c, err := loadUserRecord(db, id)
		if err != nil {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func minPercentageFromQuery(r *http.Request) int {
	if v := r.URL.Query().Get("min_percentage"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 100 {
			return n
		}
	}
	return defaultMinMatchPercentage
}

// GET /matches - Returns candidate ids with their match percentages
func matchesHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(string)

		// Gate by profile completion
		complete, err := isProfileComplete(db, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		if !complete {
			writeError(w, http.StatusForbidden, "incomplete_profile")
			return
		}

		user, err := loadUserRecord(db, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		candidates, err := loadCandidatePool(db, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "match_error")
			return
		}

		results := findMatches(user, candidates, minPercentageFromQuery(r))

		type matchEntry struct {
			UserID     string `json:"user_id"`
			Percentage int    `json:"match_percentage"`
		}
		out := make([]matchEntry, 0, len(results))
		for _, res := range results {
			out = append(out, matchEntry{UserID: res.User.ID, Percentage: res.Percentage})
		}
		writeJSON(w, http.StatusOK, map[string][]matchEntry{"matches": out})
	})
}

// GET /matches/detailed - Returns matches with hydrated user summaries
func matchesDetailedHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(string)

		complete, err := isProfileComplete(db, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		if !complete {
			writeError(w, http.StatusForbidden, "incomplete_profile")
			return
		}

		user, err := loadUserRecord(db, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		candidates, err := loadCandidatePool(db, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "match_error")
			return
		}

		results := findMatches(user, candidates, minPercentageFromQuery(r))

		type detailedEntry struct {
			UserID      string   `json:"user_id"`
			DisplayName string   `json:"display_name"`
			Age         *int     `json:"age,omitempty"`
			City        string   `json:"city"`
			Country     string   `json:"country"`
			Interests   []string `json:"interests"`
			Percentage  int      `json:"match_percentage"`
			Distance    *float64 `json:"distance_km,omitempty"`
		}

		// Batch the summary lookups through the per-request dataloader so a
		// page of matches costs one query instead of N.
		loaders := GetDataLoadersFromContext(r.Context())
		out := make([]detailedEntry, 0, len(results))
		for _, res := range results {
			entry := detailedEntry{
				UserID:      res.User.ID,
				DisplayName: res.User.DisplayName,
				Age:         res.User.Age,
				City:        res.User.City,
				Country:     res.User.Country,
				Interests:   res.User.Interests,
				Percentage:  res.Percentage,
			}
			if loaders != nil {
				if summary, err := loaders.UserSummaryLoader.Load(r.Context(), res.User.ID)(); err == nil && summary != nil {
					entry.DisplayName = summary.DisplayName
					entry.City = summary.City
					entry.Country = summary.Country
				}
			}
			if user.Latitude != nil && user.Longitude != nil && res.User.Latitude != nil && res.User.Longitude != nil {
				d := haversine(*user.Latitude, *user.Longitude, *res.User.Latitude, *res.User.Longitude)
				entry.Distance = &d
			}
			out = append(out, entry)
		}

		writeJSON(w, http.StatusOK, map[string][]detailedEntry{"matches": out})
	})
}

// matchesActionsRouter dispatches /matches/{id}/reject, DELETE /matches/{id}
// and the /matches/detailed alias.
func matchesActionsRouter(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(r.URL.Path, "/")
		parts := strings.Split(path, "/")

		switch {
		case len(parts) == 2 && parts[1] == "detailed":
			matchesDetailedHandler(db).ServeHTTP(w, r)
		case len(parts) == 3 && parts[2] == "reject":
			rejectHandler(db).ServeHTTP(w, r)
		case len(parts) == 2 && r.Method == http.MethodDelete:
			unmatchHandler(db).ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}

// POST /matches/{id}/reject - Absolute veto: the candidate scores 0 from now on
func rejectHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "matches" || parts[2] != "reject" {
			http.NotFound(w, r)
			return
		}
		targetID := parts[1]
		userID := r.Context().Value(userIDKey).(string)

		var exists bool
		err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", targetID).Scan(&exists)
		if err != nil || !exists || targetID == userID {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		// Insert rejection (ignore duplicates)
		_, err = db.Exec(`
            INSERT INTO rejections (user_id, rejected_user_id) VALUES ($1, $2)
            ON CONFLICT DO NOTHING
        `, userID, targetID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "reject_error")
			return
		}
		// A rejection also withdraws any standing like
		_, _ = db.Exec(`DELETE FROM likes WHERE user_id = $1 AND liked_user_id = $2`, userID, targetID)

		writeJSON(w, http.StatusCreated, map[string]bool{"rejected": true})
	})
}

// POST /likes/{id} - Like a candidate; a mutual like creates a match and
// notifies both sides.
func likeHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 2 || parts[0] != "likes" {
			http.NotFound(w, r)
			return
		}
		targetID := parts[1]
		userID := r.Context().Value(userIDKey).(string)
		if targetID == userID {
			writeError(w, http.StatusBadRequest, "cannot_like_self")
			return
		}

		var exists bool
		err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", targetID).Scan(&exists)
		if err != nil || !exists {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		matched := false
		err = withTx(r.Context(), db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
                INSERT INTO likes (user_id, liked_user_id) VALUES ($1, $2)
                ON CONFLICT DO NOTHING
            `, userID, targetID); err != nil {
				return err
			}

			// Mutual like -> match
			var mutual bool
			if err := tx.QueryRow(`
                SELECT EXISTS (SELECT 1 FROM likes WHERE user_id = $1 AND liked_user_id = $2)
            `, targetID, userID).Scan(&mutual); err != nil {
				return err
			}
			if !mutual {
				return nil
			}

			res, err := tx.Exec(`
                INSERT INTO matches (user1_id, user2_id)
                VALUES (LEAST($1, $2), GREATEST($1, $2))
                ON CONFLICT (user1_id, user2_id) DO NOTHING
            `, userID, targetID)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				matched = true
			}
			return nil
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "like_error")
			log.Println("Error processing like:", err)
			return
		}

		if matched {
			// Notify both sides; each recipient's own record decides the
			// high-priority (free tier) treatment.
			notifyUser(db, targetID, NotificationMatch, "You have a new match!", userID, ActionOpenProfile)
			notifyUser(db, userID, NotificationMatch, "You have a new match!", targetID, ActionOpenProfile)
		}

		writeJSON(w, http.StatusCreated, map[string]bool{"liked": true, "matched": matched})
	})
}

// DELETE /matches/{id} - Unmatch
func unmatchHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 2 || parts[0] != "matches" {
			http.NotFound(w, r)
			return
		}
		targetID := parts[1]
		userID := r.Context().Value(userIDKey).(string)

		res, err := db.Exec(`
            DELETE FROM matches
            WHERE user1_id = LEAST($1, $2) AND user2_id = GREATEST($1, $2)
        `, userID, targetID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "unmatch_error")
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		// Both directions start over
		_, _ = db.Exec(`DELETE FROM likes WHERE (user_id = $1 AND liked_user_id = $2) OR (user_id = $2 AND liked_user_id = $1)`, userID, targetID)

		writeJSON(w, http.StatusOK, map[string]bool{"unmatched": true})
	})
}
