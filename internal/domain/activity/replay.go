package activity

import (
	"cmp"
	"slices"
)

// State is the engagement state derived by replaying a user's log.
type State struct {
	// Votes maps issue ID to the latest vote direction, +1 or -1.
	Votes         map[string]int
	LikedComments map[string]struct{}
	CommentsMade  int
	RepliesMade   int
}

// ReplayState replays entries given in stored order (newest first) and
// returns the final state. Entries missing the ID field their type needs are
// skipped.
func ReplayState(entries []ActivityEntry) State {
	state := State{
		Votes:         make(map[string]int),
		LikedComments: make(map[string]struct{}),
	}
	for _, entry := range chronological(entries) {
		switch entry.Type {
		case TypeUpvote:
			if entry.Data.IssueID != "" {
				state.Votes[entry.Data.IssueID] = 1
			}
		case TypeDownvote:
			if entry.Data.IssueID != "" {
				state.Votes[entry.Data.IssueID] = -1
			}
		case TypeRemoveVote:
			if entry.Data.IssueID != "" {
				delete(state.Votes, entry.Data.IssueID)
			}
		case TypeComment:
			state.CommentsMade++
		case TypeReply:
			state.RepliesMade++
		case TypeLikeComment:
			if entry.Data.CommentID != "" {
				state.LikedComments[entry.Data.CommentID] = struct{}{}
			}
		case TypeUnlikeComment:
			if entry.Data.CommentID != "" {
				delete(state.LikedComments, entry.Data.CommentID)
			}
		}
	}
	return state
}

// Replay rebuilds the Summary for entries given in stored order. The summary
// carries the first recentLimit entries unchanged.
func Replay(entries []ActivityEntry, recentLimit int) Summary {
	if recentLimit <= 0 {
		recentLimit = RecentLimit
	}
	state := ReplayState(entries)

	var summary Summary
	for _, vote := range state.Votes {
		switch {
		case vote > 0:
			summary.UpvotesGiven++
		case vote < 0:
			summary.DownvotesGiven++
		}
	}
	summary.CommentsMade = state.CommentsMade
	summary.RepliesMade = state.RepliesMade
	summary.CommentsLiked = len(state.LikedComments)
	summary.TotalEngagement = summary.UpvotesGiven + summary.DownvotesGiven +
		summary.CommentsMade + summary.RepliesMade + summary.CommentsLiked

	n := min(len(entries), recentLimit)
	summary.Activities = make([]ActivityEntry, n)
	copy(summary.Activities, entries[:n])
	return summary
}

// chronological returns entries oldest first. Stored order is reversed, then
// entries are stably ordered by sequence number so that equal timestamps
// replay in append order. Entries without a sequence keep stored adjacency.
func chronological(entries []ActivityEntry) []ActivityEntry {
	ordered := make([]ActivityEntry, len(entries))
	for i, entry := range entries {
		ordered[len(entries)-1-i] = entry
	}
	slices.SortStableFunc(ordered, func(a, b ActivityEntry) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	return ordered
}
