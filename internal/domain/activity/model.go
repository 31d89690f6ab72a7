package activity

import "fmt"

// ActivityType represents the kind of engagement action a user performed.
type ActivityType string

const (
	TypeUpvote        ActivityType = "upvote"
	TypeDownvote      ActivityType = "downvote"
	TypeComment       ActivityType = "comment"
	TypeReply         ActivityType = "reply"
	TypeLikeComment   ActivityType = "like_comment"
	TypeUnlikeComment ActivityType = "unlike_comment"
	TypeRemoveVote    ActivityType = "remove_vote"
)

// Types lists every known activity type.
var Types = []ActivityType{
	TypeUpvote,
	TypeDownvote,
	TypeComment,
	TypeReply,
	TypeLikeComment,
	TypeUnlikeComment,
	TypeRemoveVote,
}

const (
	// MaxActivities caps the number of entries kept across all users.
	MaxActivities = 1000
	// RecentLimit is how many raw entries a Summary carries.
	RecentLimit = 50
	// DefaultSlotKey names the storage slot holding the log.
	DefaultSlotKey = "community_activity_log"
)

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case TypeUpvote, TypeDownvote, TypeComment, TypeReply,
		TypeLikeComment, TypeUnlikeComment, TypeRemoveVote:
		return true
	}
	return false
}

// ParseType converts s into an ActivityType.
func ParseType(s string) (ActivityType, error) {
	t := ActivityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// ActivityData is the type-dependent payload of an entry.
type ActivityData struct {
	IssueID         string `json:"issueId,omitempty"`
	CommentID       string `json:"commentId,omitempty"`
	ParentCommentID string `json:"parentCommentId,omitempty"`
	VoteValue       *int   `json:"voteValue,omitempty"`
	Content         string `json:"content,omitempty"`
}

// ActivityEntry is one immutable record in the activity log.
type ActivityEntry struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Type      ActivityType `json:"type"`
	Timestamp int64        `json:"timestamp"` // unix millis
	Seq       int64        `json:"seq,omitempty"`
	Data      ActivityData `json:"data"`
}

// Summary is the engagement picture rebuilt from a user's log.
type Summary struct {
	UpvotesGiven    int             `json:"upvotesGiven"`
	DownvotesGiven  int             `json:"downvotesGiven"`
	CommentsMade    int             `json:"commentsMade"`
	RepliesMade     int             `json:"repliesMade"`
	CommentsLiked   int             `json:"commentsLiked"`
	TotalEngagement int             `json:"totalEngagement"`
	Activities      []ActivityEntry `json:"activities"`
}

// LogStats describes the whole stored log.
type LogStats struct {
	Entries    int `json:"entries"`
	Users      int `json:"users"`
	MaxEntries int `json:"maxEntries"`
}
