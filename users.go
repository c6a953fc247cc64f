package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// loadUserRecord assembles the immutable snapshot the scoring engines
// consume: profile fields plus the rejection and match id sets. This is the
// "user repository" boundary; the engines themselves never touch the DB.
func loadUserRecord(db *sql.DB, userID string) (UserRecord, error) {
	var u UserRecord
	var age, minAge, maxAge sql.NullInt32
	var lat, lon sql.NullFloat64
	var genderPref, tier sql.NullString
	var interestsJSON string

	err := db.QueryRow(`
        SELECT u.id, u.email,
               COALESCE(p.display_name, ''), p.age,
               COALESCE(p.gender, ''), COALESCE(p.country, ''), COALESCE(p.city, ''),
               p.latitude, p.longitude,
               COALESCE(p.interests::text, '[]'),
               p.min_age_preference, p.max_age_preference, p.gender_preference,
               p.subscription_tier
        FROM users u
        LEFT JOIN profiles p ON p.user_id = u.id
        WHERE u.id = $1
    `, userID).Scan(
		&u.ID, &u.Email, &u.DisplayName, &age, &u.Gender, &u.Country, &u.City,
		&lat, &lon, &interestsJSON, &minAge, &maxAge, &genderPref, &tier,
	)
	if err != nil {
		return UserRecord{}, err
	}

	if age.Valid {
		v := int(age.Int32)
		u.Age = &v
	}
	if lat.Valid {
		u.Latitude = &lat.Float64
	}
	if lon.Valid {
		u.Longitude = &lon.Float64
	}
	if minAge.Valid {
		v := int(minAge.Int32)
		u.Preferences.MinAge = &v
	}
	if maxAge.Valid {
		v := int(maxAge.Int32)
		u.Preferences.MaxAge = &v
	}
	if genderPref.Valid && genderPref.String != "" {
		u.Preferences.GenderPreference = &genderPref.String
	}
	if tier.Valid && tier.String != "" {
		u.SubscriptionTier = &tier.String
	}
	u.Interests = parseStringList(interestsJSON)

	u.RejectedUserIDs, err = collectIDs(db, `SELECT rejected_user_id FROM rejections WHERE user_id = $1`, userID)
	if err != nil {
		return UserRecord{}, err
	}
	u.MatchedUserIDs, err = collectIDs(db, `
        SELECT CASE WHEN user1_id = $1 THEN user2_id ELSE user1_id END
        FROM matches
        WHERE user1_id = $1 OR user2_id = $1
    `, userID)
	if err != nil {
		return UserRecord{}, err
	}
	return u, nil
}

func collectIDs(db *sql.DB, query, userID string) ([]string, error) {
	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// isProfileComplete gates matching, mirroring the original app's
// isProfileComplete flag: name, age and gender must be filled in.
func isProfileComplete(db *sql.DB, userID string) (bool, error) {
	var complete bool
	err := db.QueryRow(`
        SELECT COALESCE(display_name <> '' AND age IS NOT NULL AND gender <> '', FALSE)
        FROM profiles WHERE user_id = $1
    `, userID).Scan(&complete)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return complete, err
}

func meHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(string)
		user, err := loadUserRecord(db, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		writeJSON(w, http.StatusOK, user)
	})
}

// ProfileUpdate is the PUT /me/profile request body. Pointer fields are
// only written when present, so partial updates work.
type ProfileUpdate struct {
	DisplayName      *string   `json:"display_name"`
	Age              *int      `json:"age"`
	Gender           *string   `json:"gender"`
	Country          *string   `json:"country"`
	City             *string   `json:"city"`
	Latitude         *float64  `json:"latitude"`
	Longitude        *float64  `json:"longitude"`
	Interests        *[]string `json:"interests"`
	MinAge           *int      `json:"min_age"`
	MaxAge           *int      `json:"max_age"`
	GenderPreference *string   `json:"gender_preference"`
	SubscriptionTier *string   `json:"subscription_tier"`
}

func meProfileHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(string)

		switch r.Method {
		case http.MethodGet:
			user, err := loadUserRecord(db, userID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			writeJSON(w, http.StatusOK, user)

		case http.MethodPut, http.MethodPatch:
			var upd ProfileUpdate
			if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_json")
				return
			}
			if err := upsertProfile(db, userID, upd); err != nil {
				writeError(w, http.StatusInternalServerError, "profile_update_error")
				log.Println("Error updating profile:", err)
				return
			}
			user, err := loadUserRecord(db, userID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			writeJSON(w, http.StatusOK, user)

		default:
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
		}
	})
}

func upsertProfile(db *sql.DB, userID string, upd ProfileUpdate) error {
	// Make sure a row exists, then apply only the provided fields.
	_, err := db.Exec(`
        INSERT INTO profiles (user_id) VALUES ($1)
        ON CONFLICT (user_id) DO NOTHING
    `, userID)
	if err != nil {
		return err
	}

	set := func(column string, value interface{}) error {
		_, err := db.Exec(`UPDATE profiles SET `+column+` = $2, updated_at = NOW() WHERE user_id = $1`, userID, value)
		return err
	}

	if upd.DisplayName != nil {
		if err := set("display_name", strings.TrimSpace(*upd.DisplayName)); err != nil {
			return err
		}
	}
	if upd.Age != nil {
		if err := set("age", *upd.Age); err != nil {
			return err
		}
	}
	if upd.Gender != nil {
		if err := set("gender", *upd.Gender); err != nil {
			return err
		}
	}
	if upd.Country != nil {
		if err := set("country", *upd.Country); err != nil {
			return err
		}
	}
	if upd.City != nil {
		if err := set("city", *upd.City); err != nil {
			return err
		}
	}
	if upd.Latitude != nil {
		if err := set("latitude", *upd.Latitude); err != nil {
			return err
		}
	}
	if upd.Longitude != nil {
		if err := set("longitude", *upd.Longitude); err != nil {
			return err
		}
	}
	if upd.Interests != nil {
		if err := set("interests", stringListToJSON(*upd.Interests)); err != nil {
			return err
		}
	}
	if upd.MinAge != nil {
		if err := set("min_age_preference", *upd.MinAge); err != nil {
			return err
		}
	}
	if upd.MaxAge != nil {
		if err := set("max_age_preference", *upd.MaxAge); err != nil {
			return err
		}
	}
	if upd.GenderPreference != nil {
		if err := set("gender_preference", *upd.GenderPreference); err != nil {
			return err
		}
	}
	if upd.SubscriptionTier != nil {
		if err := set("subscription_tier", *upd.SubscriptionTier); err != nil {
			return err
		}
	}
	return nil
}

// GET /users/{id} - public summary of another user
func userHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 2 || parts[0] != "users" {
			http.NotFound(w, r)
			return
		}
		targetID := parts[1]

		var summary struct {
			ID          string   `json:"id"`
			DisplayName string   `json:"display_name"`
			Age         *int     `json:"age,omitempty"`
			City        string   `json:"city"`
			Country     string   `json:"country"`
			Interests   []string `json:"interests"`
			Online      bool     `json:"online"`
		}
		var age sql.NullInt32
		var interestsJSON string
		err := db.QueryRow(`
            SELECT u.id, COALESCE(p.display_name, ''), p.age,
                   COALESCE(p.city, ''), COALESCE(p.country, ''),
                   COALESCE(p.interests::text, '[]')
            FROM users u
            LEFT JOIN profiles p ON p.user_id = u.id
            WHERE u.id = $1
        `, targetID).Scan(&summary.ID, &summary.DisplayName, &age, &summary.City, &summary.Country, &interestsJSON)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "not_found")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		if age.Valid {
			v := int(age.Int32)
			summary.Age = &v
		}
		summary.Interests = parseStringList(interestsJSON)
		summary.Online, _ = isOnlineNow(db, targetID)

		writeJSON(w, http.StatusOK, summary)
	})
}
