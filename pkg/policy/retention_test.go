package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func entriesAt(ages ...int) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(ages))
	for i, a := range ages {
		out = append(out, &testEntry{hash: "h" + string(rune('a'+i)), createdAt: testNow.Add(-days(a))})
	}
	return out
}

func TestSelectStaleEntries(t *testing.T) {
	tests := []struct {
		name  string
		ages  []int
		limit int
		want  []string
	}{
		{name: "under limit", ages: []int{1, 2}, limit: 3, want: nil},
		{name: "at limit", ages: []int{1, 2, 3}, limit: 3, want: nil},
		{name: "oldest evicted", ages: []int{5, 1, 9, 3}, limit: 3, want: []string{"hc"}},
		{name: "limit zero evicts all", ages: []int{5, 1}, limit: 0, want: []string{"hb", "ha"}},
		{name: "negative limit evicts all", ages: []int{2}, limit: -1, want: []string{"ha"}},
		{name: "empty history", ages: nil, limit: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stale := SelectStaleEntries(entriesAt(tt.ages...), tt.limit)
			var got []string
			for _, e := range stale {
				got = append(got, e.PasswordHash())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectStaleEntriesStaleAreOlderThanRetained(t *testing.T) {
	history := entriesAt(10, 3, 7, 1, 30, 2, 14)
	for limit := 0; limit <= len(history)+1; limit++ {
		stale := SelectStaleEntries(history, limit)

		want := len(history) - limit
		if want < 0 {
			want = 0
		}
		assert.Len(t, stale, want)

		staleSet := make(map[HistoryEntry]bool)
		for _, s := range stale {
			staleSet[s] = true
		}
		for _, s := range stale {
			for _, kept := range history {
				if staleSet[kept] {
					continue
				}
				assert.True(t, s.CreatedAt().Before(kept.CreatedAt()), "limit %d", limit)
			}
		}
	}
}

func TestSelectStaleEntriesTiesKeepSourceOrder(t *testing.T) {
	same := testNow.Add(-time.Hour)
	history := []HistoryEntry{
		&testEntry{hash: "first", createdAt: same},
		&testEntry{hash: "second", createdAt: same},
		&testEntry{hash: "third", createdAt: same},
	}

	stale := SelectStaleEntries(history, 1)

	assert.Equal(t, []HistoryEntry{history[1], history[2]}, stale)
	assert.Equal(t, "first", history[0].PasswordHash(), "input must not be reordered")
}
