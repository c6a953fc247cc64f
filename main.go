package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
)

// JWT secret from environment variable or fallback
func getJWTSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("your_secret_key_please_change_in_production")
}

var jwtSecret = getJWTSecret()

// messagesHandler dispatches the bare /messages route by method.
func messagesHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			sendMessageHandler(db).ServeHTTP(w, r)
		case http.MethodGet:
			conversationsHandler(db).ServeHTTP(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
		}
	}
}

func main() {
	initDB()

	mux := http.NewServeMux()

	// Core auth & user endpoints
	mux.Handle("/register", registerHandler(db))
	mux.Handle("/login", loginHandler(db))
	mux.Handle("/me", meHandler(db))
	mux.Handle("/me/profile", meProfileHandler(db))
	mux.Handle("/me/notification-preferences", notificationPrefsHandler(db))

	// Ping: mark this user as online "now"
	mux.Handle("/me/ping", mePingHandler(db)) // POST

	// Matching
	mux.Handle("/matches", matchesHandler(db))        // GET /matches
	mux.Handle("/matches/", matchesActionsRouter(db)) // /matches/detailed, /matches/{id}/reject, DELETE /matches/{id}
	mux.Handle("/likes/", likeHandler(db))            // POST /likes/{id}

	// Notifications (prioritized)
	mux.Handle("/notifications", notificationsHandler(db)) // GET
	mux.Handle("/notifications/", notificationsRouter(db)) // POST /notifications/{id}/read

	// Messaging between matched users
	mux.Handle("/messages", messagesHandler(db))        // POST send, GET conversations
	mux.Handle("/messages/", messageHistoryHandler(db)) // GET /messages/{peerId}

	// Calls
	mux.Handle("/calls", callsRouter(db))
	mux.Handle("/calls/", callsRouter(db)) // POST /calls/{id}/end

	// Users dispatcher (public summaries)
	mux.Handle("/users/", userHandler(db))

	// WebSocket live event stream
	mux.Handle("/ws/notifications", wsNotificationsHandler())

	// Health check endpoint for Docker
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Middleware chain: CORS -> DataLoader -> mux
	handler := withCORS(DataLoaderMiddleware(db)(mux))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Default().Println("Starting OneLove Backend on port " + port + "...")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal("Server error:", err)
	}
}
