package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podforge/internal/api"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	episodesCmd := &cobra.Command{
		Use:   "episodes",
		Short: "Inspect and manage generated episodes",
	}

	episodesCmd.AddCommand(newEpisodesListCommand(ctx))
	episodesCmd.AddCommand(newEpisodesShowCommand(ctx))
	episodesCmd.AddCommand(newEpisodesDeleteCommand(ctx))

	return episodesCmd
}

func newEpisodesListCommand(ctx *commandContext) *cobra.Command {
	var owner string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEpisodes(cmd.Context(), func(callCtx context.Context, episodes episodesAPI) error {
				list, err := episodes.List(callCtx, strings.TrimSpace(owner))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No episodes found")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Name", "Owner", "Status", "Audio", "Created"},
					buildEpisodeRows(list),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Filter by episode owner")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newEpisodesShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one episode in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withEpisodes(cmd.Context(), func(callCtx context.Context, episodes episodesAPI) error {
				episode, err := episodes.Describe(callCtx, id)
				if err != nil {
					return err
				}
				if episode == nil {
					return fmt.Errorf("episode %s not found", id)
				}
				if asJSON {
					return writeJSON(cmd, episode)
				}
				printEpisodeDetail(cmd, episode)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	return cmd
}

func newEpisodesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an episode and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withEpisodes(cmd.Context(), func(callCtx context.Context, episodes episodesAPI) error {
				deleted, err := episodes.Delete(callCtx, id)
				if err != nil {
					return err
				}
				if !deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "Episode %s not found\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Episode %s deleted\n", id)
				return nil
			})
		},
	}
}

func printEpisodeDetail(cmd *cobra.Command, episode *api.Episode) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Episode:     %s\n", episode.Name)
	fmt.Fprintf(out, "ID:          %s\n", episode.ID)
	fmt.Fprintf(out, "Owner:       %s\n", episode.Owner)
	fmt.Fprintf(out, "Status:      %s\n", formatStatusLabel(episode.JobStatus))
	if episode.JobRef != "" {
		fmt.Fprintf(out, "Job:         %s\n", episode.JobRef)
	}
	if episode.AudioFile != "" {
		fmt.Fprintf(out, "Audio:       %s\n", episode.AudioFile)
	}
	if episode.AudioURL != "" {
		fmt.Fprintf(out, "Audio URL:   %s\n", episode.AudioURL)
	}
	if episode.DownloadURL != "" {
		fmt.Fprintf(out, "Download:    %s\n", episode.DownloadURL)
	}
	if created := formatDisplayTime(episode.Created); created != "" {
		fmt.Fprintf(out, "Created:     %s\n", created)
	}
	if updated := formatDisplayTime(episode.Updated); updated != "" {
		fmt.Fprintf(out, "Updated:     %s\n", updated)
	}
	fmt.Fprintf(out, "Transcript:  %s\n", describeSegments(episode.Transcript, "line"))
	fmt.Fprintf(out, "Outline:     %s\n", yesNo(len(episode.Outline) > 0))
	if briefing := strings.TrimSpace(episode.Briefing); briefing != "" {
		fmt.Fprintln(out, "Briefing:")
		for _, line := range strings.Split(briefing, "\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
}

// describeSegments summarizes a raw JSON array as "N <unit>s" without
// requiring a full decode of the payload shape.
func describeSegments(raw json.RawMessage, unit string) string {
	if len(raw) == 0 {
		return "no"
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return "yes"
	}
	if len(entries) == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", len(entries), unit)
}
