package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader/v7"
)

// DataLoaderContextKey is the key used to store dataloaders in context
type DataLoaderContextKey string

const dataLoaderKey DataLoaderContextKey = "dataloader"

// UserSummary is the lightweight projection the hydrating handlers show for
// other users (match lists, notification senders).
type UserSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	City        string `json:"city"`
	Country     string `json:"country"`
}

// DataLoaders holds all the dataloaders for the application
type DataLoaders struct {
	UserSummaryLoader *dataloader.Loader[string, *UserSummary]
	UnreadCountLoader *dataloader.Loader[string, int]
}

// NewDataLoaders creates new dataloaders with the database connection
func NewDataLoaders(db *sql.DB) *DataLoaders {
	return &DataLoaders{
		UserSummaryLoader: dataloader.NewBatchedLoader(userSummaryBatchFn(db), dataloader.WithWait[string, *UserSummary](16*time.Millisecond)),
		UnreadCountLoader: dataloader.NewBatchedLoader(unreadCountBatchFn(db), dataloader.WithWait[string, int](16*time.Millisecond)),
	}
}

// GetDataLoadersFromContext retrieves dataloaders from context
func GetDataLoadersFromContext(ctx context.Context) *DataLoaders {
	if dl, ok := ctx.Value(dataLoaderKey).(*DataLoaders); ok {
		return dl
	}
	return nil
}

// WithDataLoaders adds dataloaders to context
func WithDataLoaders(ctx context.Context, dl *DataLoaders) context.Context {
	return context.WithValue(ctx, dataLoaderKey, dl)
}

// userSummaryBatchFn creates a batch function for loading user summaries
func userSummaryBatchFn(db *sql.DB) dataloader.BatchFunc[string, *UserSummary] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[*UserSummary] {
		results := make([]*dataloader.Result[*UserSummary], len(keys))

		keyMap := make(map[string]int) // userID -> index in results
		for i, key := range keys {
			keyMap[key] = i
			results[i] = &dataloader.Result[*UserSummary]{}
		}

		if len(keys) == 0 {
			return results
		}

		placeholders := make([]string, len(keys))
		args := make([]interface{}, len(keys))
		for i, key := range keys {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = key
		}

		query := fmt.Sprintf(`
			SELECT u.id, COALESCE(p.display_name, ''), COALESCE(p.city, ''), COALESCE(p.country, '')
			FROM users u
			LEFT JOIN profiles p ON p.user_id = u.id
			WHERE u.id IN (%s)
		`, joinPlaceholders(placeholders))

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			for i := range results {
				results[i].Error = err
			}
			return results
		}
		defer rows.Close()

		for rows.Next() {
			var s UserSummary
			if err := rows.Scan(&s.ID, &s.DisplayName, &s.City, &s.Country); err != nil {
				for i := range results {
					if results[i].Data == nil && results[i].Error == nil {
						results[i].Error = err
					}
				}
				return results
			}
			if idx, ok := keyMap[s.ID]; ok {
				summary := s
				results[idx].Data = &summary
			}
		}

		return results
	}
}

// unreadCountBatchFn creates a batch function for unread message counts,
// keyed by the pair "userID|peerID".
func unreadCountBatchFn(db *sql.DB) dataloader.BatchFunc[string, int] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[int] {
		results := make([]*dataloader.Result[int], len(keys))

		keyMap := make(map[string]int)
		for i, key := range keys {
			keyMap[key] = i
			results[i] = &dataloader.Result[int]{}
		}

		if len(keys) == 0 {
			return results
		}

		placeholders := make([]string, len(keys))
		args := make([]interface{}, len(keys))
		for i, key := range keys {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = key
		}

		query := fmt.Sprintf(`
			SELECT recipient_id || '|' || sender_id, COUNT(*)
			FROM messages
			WHERE is_read = FALSE
			  AND recipient_id || '|' || sender_id IN (%s)
			GROUP BY recipient_id, sender_id
		`, joinPlaceholders(placeholders))

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			for i := range results {
				results[i].Error = err
			}
			return results
		}
		defer rows.Close()

		for rows.Next() {
			var key string
			var count int
			if err := rows.Scan(&key, &count); err != nil {
				for i := range results {
					if results[i].Error == nil {
						results[i].Error = err
					}
				}
				return results
			}
			if idx, ok := keyMap[key]; ok {
				results[idx].Data = count
			}
		}

		return results
	}
}

// Helper function to join placeholders for IN clause
func joinPlaceholders(placeholders []string) string {
	if len(placeholders) == 0 {
		return ""
	}
	result := placeholders[0]
	for i := 1; i < len(placeholders); i++ {
		result += ", " + placeholders[i]
	}
	return result
}
