package policy

import "sort"

// SelectStaleEntries returns the entries that fall outside the newest limit entries.
//
// Entries are ordered by CreatedAt, newest first, with a stable sort: entries sharing a
// timestamp keep the order the history source presented them in. A limit of zero (or
// less) marks everything stale; a limit at or above len(history) marks nothing. The input
// slice is not modified; removing and persisting the removal is the caller's job.
func SelectStaleEntries(history []HistoryEntry, limit int) []HistoryEntry {
	if limit < 0 {
		limit = 0
	}
	if len(history) <= limit {
		return nil
	}

	sorted := make([]HistoryEntry, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt().After(sorted[j].CreatedAt())
	})

	return sorted[limit:]
}
