package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/rpggio/tally/internal/config"
	"github.com/rpggio/tally/internal/domain/activity"
	"github.com/rpggio/tally/internal/kv"
	"github.com/rpggio/tally/internal/storage"
	"github.com/spf13/cobra"
)

// cli holds state shared by every subcommand of one invocation.
type cli struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	logLevel   string

	cfg      config.Config
	store    kv.SlotStore
	activity *activity.Service
}

func newRootCommand(stdout, stderr io.Writer) (*cobra.Command, *cli) {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "tallyctl",
		Short:         "Inspect and maintain the community activity log",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return c.open(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a YAML or TOML config file (default $TALLY_CONFIG_PATH)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		c.logCommand(),
		c.summaryCommand(),
		c.listCommand(),
		c.exportCommand(),
		c.clearCommand(),
		c.statusCommand(),
	)
	return root, c
}

func (c *cli) open(cmd *cobra.Command) error {
	var err error
	if c.configPath != "" {
		c.cfg, err = config.LoadFile(c.configPath)
	} else {
		c.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.logLevel != "" {
		c.cfg.Log.Level = c.logLevel
	}

	level, err := charmLog.ParseLevel(c.cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", c.cfg.Log.Level, err)
	}
	handler := charmLog.NewWithOptions(c.stderr, charmLog.Options{
		Level:           level,
		Prefix:          "tallyctl",
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	logger := slog.New(handler)

	c.store, err = storage.Open(cmd.Context(), c.cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", c.cfg.Storage.Backend, err)
	}
	c.activity = activity.NewService(c.store, logger, storage.ActivityOptions(c.cfg.Activity)...)
	return nil
}

func (c *cli) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

func (c *cli) logCommand() *cobra.Command {
	var (
		data activity.ActivityData
		vote int
	)
	cmd := &cobra.Command{
		Use:   "log <user> <type>",
		Short: "Append an activity for a user",
		Long:  "Append an activity for a user. Types: " + typeNames() + ".",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			activityType, err := activity.ParseType(args[1])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("vote") {
				data.VoteValue = &vote
			}
			entry, ok := c.activity.Append(cmd.Context(), args[0], activityType, data)
			if !ok {
				return errors.New("activity was not recorded; see log output")
			}
			return writeIndented(c.stdout, entry)
		},
	}
	cmd.Flags().StringVar(&data.IssueID, "issue", "", "issue id")
	cmd.Flags().StringVar(&data.CommentID, "comment", "", "comment id")
	cmd.Flags().StringVar(&data.ParentCommentID, "parent", "", "parent comment id (replies)")
	cmd.Flags().StringVar(&data.Content, "content", "", "comment or reply text")
	cmd.Flags().IntVar(&vote, "vote", 0, "vote value")
	return cmd
}

func (c *cli) summaryCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary <user>",
		Short: "Show a user's engagement summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary := c.activity.Summary(cmd.Context(), args[0])
			if asJSON {
				return writeIndented(c.stdout, summary)
			}
			_, err := fmt.Fprintf(c.stdout,
				"user:             %s\nupvotes given:    %d\ndownvotes given:  %d\ncomments made:    %d\nreplies made:     %d\ncomments liked:   %d\ntotal engagement: %d\nrecent entries:   %d\n",
				args[0],
				summary.UpvotesGiven,
				summary.DownvotesGiven,
				summary.CommentsMade,
				summary.RepliesMade,
				summary.CommentsLiked,
				summary.TotalEngagement,
				len(summary.Activities),
			)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func (c *cli) listCommand() *cobra.Command {
	var (
		types []string
		opts  activity.ListOptions
	)
	cmd := &cobra.Command{
		Use:   "list <user>",
		Short: "List a user's entries, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range types {
				activityType, err := activity.ParseType(name)
				if err != nil {
					return err
				}
				opts.Types = append(opts.Types, activityType)
			}
			for _, entry := range c.activity.List(cmd.Context(), args[0], opts) {
				if _, err := fmt.Fprintln(c.stdout, formatEntry(entry)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&types, "type", nil, "only show these activity types")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entries to show")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "entries to skip")
	return cmd
}

func (c *cli) exportCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <user>",
		Short: "Export a user's entries as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := c.activity.ExportForUser(cmd.Context(), args[0])
			if output == "" || output == "-" {
				_, err := fmt.Fprintln(c.stdout, body)
				return err
			}
			if err := os.WriteFile(output, []byte(body+"\n"), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			_, err := fmt.Fprintf(c.stdout, "exported %s to %s\n", args[0], output)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func (c *cli) clearCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear <user>",
		Short: "Remove every entry of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			removed := c.activity.ClearForUser(cmd.Context(), args[0])
			_, err := fmt.Fprintf(c.stdout, "removed %d entries for %s\n", removed, args[0])
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the removal")
	return cmd
}

func (c *cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show storage backend and log size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats := c.activity.Stats(cmd.Context())
			_, err := fmt.Fprintf(c.stdout, "backend: %s\nslot:    %s\nentries: %d/%d\nusers:   %d\n",
				c.cfg.Storage.Backend,
				c.cfg.Activity.SlotKey,
				stats.Entries,
				stats.MaxEntries,
				stats.Users,
			)
			return err
		},
	}
}

func formatEntry(entry activity.ActivityEntry) string {
	var parts []string
	if entry.Data.IssueID != "" {
		parts = append(parts, "issue="+entry.Data.IssueID)
	}
	if entry.Data.CommentID != "" {
		parts = append(parts, "comment="+entry.Data.CommentID)
	}
	if entry.Data.ParentCommentID != "" {
		parts = append(parts, "parent="+entry.Data.ParentCommentID)
	}
	if entry.Data.VoteValue != nil {
		parts = append(parts, fmt.Sprintf("vote=%d", *entry.Data.VoteValue))
	}
	if entry.Data.Content != "" {
		parts = append(parts, fmt.Sprintf("content=%q", entry.Data.Content))
	}
	ts := time.UnixMilli(entry.Timestamp).UTC().Format(time.RFC3339)
	return strings.TrimSpace(fmt.Sprintf("%s  %-14s  %s  %s", ts, entry.Type, entry.ID, strings.Join(parts, " ")))
}

func typeNames() string {
	names := make([]string, len(activity.Types))
	for i, t := range activity.Types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
