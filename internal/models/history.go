package models

import "github.com/google/uuid"

// PushHistory moves videoID to the most recent end of history.
//
// The list is oldest-first. Any earlier occurrence of videoID is removed
// so the video appears exactly once, and when maxEntries > 0 the oldest entries
// are dropped to keep at most maxEntries ids. The input slice is not modified.
func PushHistory(history []uuid.UUID, videoID uuid.UUID, maxEntries int) []uuid.UUID {
	next := make([]uuid.UUID, 0, len(history)+1)
	for _, id := range history {
		if id != videoID {
			next = append(next, id)
		}
	}
	next = append(next, videoID)

	if maxEntries > 0 && len(next) > maxEntries {
		next = next[len(next)-maxEntries:]
	}
	return next
}

// RecentFirst returns a reversed copy of an oldest-first history.
func RecentFirst(history []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(history))
	for i, id := range history {
		out[len(history)-1-i] = id
	}
	return out
}
