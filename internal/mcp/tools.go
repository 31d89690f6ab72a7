package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/tally/internal/domain/activity"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type LogActivityParams struct {
	UserID          string `json:"user_id" jsonschema:"user who performed the action"`
	Type            string `json:"type" jsonschema:"one of upvote, downvote, comment, reply, like_comment, unlike_comment, remove_vote"`
	IssueID         string `json:"issue_id,omitempty" jsonschema:"issue the action targets; required for votes and comments"`
	CommentID       string `json:"comment_id,omitempty" jsonschema:"comment the action created or targets"`
	ParentCommentID string `json:"parent_comment_id,omitempty" jsonschema:"parent comment of a reply"`
	VoteValue       *int   `json:"vote_value,omitempty" jsonschema:"signed vote weight, informational"`
	Content         string `json:"content,omitempty" jsonschema:"comment or reply text"`
}

type UserParams struct {
	UserID string `json:"user_id" jsonschema:"user whose activity is read"`
}

type ListUserActivityParams struct {
	UserID string   `json:"user_id" jsonschema:"user whose activity is listed"`
	Types  []string `json:"types,omitempty" jsonschema:"only return these activity types"`
	Limit  int      `json:"limit,omitempty" jsonschema:"maximum entries to return; 0 means all"`
	Offset int      `json:"offset,omitempty" jsonschema:"entries to skip from the newest"`
}

type ClearUserActivityParams struct {
	UserID  string `json:"user_id" jsonschema:"user whose entries are removed"`
	Confirm bool   `json:"confirm" jsonschema:"must be true; clearing cannot be undone"`
}

type StatsParams struct{}

type ListUserActivityResult struct {
	Activities []activity.ActivityEntry `json:"activities"`
	Count      int                      `json:"count"`
}

type ExportUserActivityResult struct {
	UserID string `json:"user_id"`
	JSON   string `json:"json"`
}

type ClearUserActivityResult struct {
	UserID  string `json:"user_id"`
	Removed int    `json:"removed"`
}

func registerTools(server *sdkmcp.Server, svc ActivityService, logger *slog.Logger) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "log_activity",
		Description: "Record a community engagement action for a user",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in LogActivityParams) (*sdkmcp.CallToolResult, activity.ActivityEntry, error) {
		if strings.TrimSpace(in.UserID) == "" {
			return nil, activity.ActivityEntry{}, toolError(fmt.Errorf("%w: user_id is required", activity.ErrInvalidInput))
		}
		activityType, err := activity.ParseType(in.Type)
		if err != nil {
			return nil, activity.ActivityEntry{}, toolError(err)
		}
		entry, ok := svc.Append(ctx, in.UserID, activityType, activity.ActivityData{
			IssueID:         in.IssueID,
			CommentID:       in.CommentID,
			ParentCommentID: in.ParentCommentID,
			VoteValue:       in.VoteValue,
			Content:         in.Content,
		})
		if !ok {
			return nil, activity.ActivityEntry{}, toolError(errNotRecorded)
		}
		logger.Debug("activity logged via mcp", "principal", getPrincipal(ctx), "user_id", in.UserID, "type", activityType)
		return nil, entry, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_activity_summary",
		Description: "Rebuild a user's engagement summary: votes, comments, replies, likes and recent entries",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in UserParams) (*sdkmcp.CallToolResult, activity.Summary, error) {
		return nil, svc.Summary(ctx, in.UserID), nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_user_activity",
		Description: "List a user's raw activity entries, newest first",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListUserActivityParams) (*sdkmcp.CallToolResult, ListUserActivityResult, error) {
		opts := activity.ListOptions{Limit: in.Limit, Offset: in.Offset}
		for _, name := range in.Types {
			activityType, err := activity.ParseType(name)
			if err != nil {
				return nil, ListUserActivityResult{}, toolError(err)
			}
			opts.Types = append(opts.Types, activityType)
		}
		entries := svc.List(ctx, in.UserID, opts)
		return nil, ListUserActivityResult{Activities: entries, Count: len(entries)}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "export_user_activity",
		Description: "Export a user's entries as a pretty-printed JSON array",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in UserParams) (*sdkmcp.CallToolResult, ExportUserActivityResult, error) {
		return nil, ExportUserActivityResult{UserID: in.UserID, JSON: svc.ExportForUser(ctx, in.UserID)}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "clear_user_activity",
		Description: "Permanently remove every entry of a user from the log",
		Annotations: &sdkmcp.ToolAnnotations{DestructiveHint: ptr(true)},
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in ClearUserActivityParams) (*sdkmcp.CallToolResult, ClearUserActivityResult, error) {
		if !in.Confirm {
			return nil, ClearUserActivityResult{}, &APIError{
				Code:         "CONFIRMATION_REQUIRED",
				Message:      "clearing activity cannot be undone",
				RecoveryHint: "Call again with confirm=true",
			}
		}
		removed := svc.ClearForUser(ctx, in.UserID)
		logger.Info("user activity cleared via mcp", "principal", getPrincipal(ctx), "user_id", in.UserID, "removed", removed)
		return nil, ClearUserActivityResult{UserID: in.UserID, Removed: removed}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_log_stats",
		Description: "Report how many entries and users the activity log holds",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ StatsParams) (*sdkmcp.CallToolResult, activity.LogStats, error) {
		return nil, svc.Stats(ctx), nil
	})
}

func ptr[T any](v T) *T {
	return &v
}
