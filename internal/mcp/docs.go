package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `tally keeps an append-only log of community engagement actions and rebuilds per-user summaries from it.

Core concepts:
- Activity: one action (upvote, downvote, comment, reply, like_comment, unlike_comment, remove_vote) by one user.
- Log: a single shared list of activities, newest first, capped at 1000 entries across all users. The oldest entries fall off.
- Summary: derived by replaying a user's activities oldest first. Votes are last-write-wins per issue; likes form a set; comments and replies only count up.

Typical workflow:
1) Record actions with log_activity.
2) Read a user's state with get_activity_summary (cheap) or list_user_activity (raw entries).
3) Use export_user_activity for a portable JSON copy and clear_user_activity (confirm=true) to erase a user.

Writes never fail loudly: when storage is unavailable log_activity returns NOT_RECORDED and reads return empty results.

Docs:
- tally://docs/activity-types
- tally://docs/summary
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "tally://docs/activity-types",
		Name:        "activity_types",
		Title:       "Activity types and payloads",
		Description: "Which payload fields each activity type needs.",
		Content: `# Activity types

| type | required fields | effect on summary |
|---|---|---|
| upvote | issue_id | vote on issue becomes +1 |
| downvote | issue_id | vote on issue becomes -1 |
| remove_vote | issue_id | vote on issue is forgotten |
| comment | issue_id, comment_id | comments made +1 |
| reply | comment_id, parent_comment_id | replies made +1 |
| like_comment | comment_id | comment joins liked set |
| unlike_comment | comment_id | comment leaves liked set |

Entries missing their required id are kept in the log but ignored by the summary.
` + "`vote_value`" + ` and ` + "`content`" + ` are stored for display only.
`,
	},
	{
		URI:         "tally://docs/summary",
		Name:        "summary",
		Title:       "How summaries are computed",
		Description: "Replay order, counters and the retention cap.",
		Content: `# Summaries

A summary is never stored. Each call replays the user's entries from oldest to newest:

- upvotesGiven / downvotesGiven count issues whose final vote is +1 / -1.
- commentsMade and repliesMade count every comment and reply ever logged; removals do not exist for them.
- commentsLiked is the size of the liked set after all likes and unlikes.
- totalEngagement = upvotesGiven + downvotesGiven + commentsMade + repliesMade + commentsLiked.
- activities holds the 50 most recent raw entries, newest first.

The log keeps 1000 entries across every user. A busy community can push a quiet
user's early entries out, and the summary then reflects only what is left.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
