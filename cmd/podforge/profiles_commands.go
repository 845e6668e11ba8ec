package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podforge/internal/profiles"
	"podforge/internal/storage"
)

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "Inspect and import generation profiles",
	}

	profilesCmd.AddCommand(newProfilesListCommand(ctx))
	profilesCmd.AddCommand(newProfilesImportCommand(ctx))

	return profilesCmd
}

func newProfilesListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List episode and speaker profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfileStore(ctx, cmd.Context(), func(store *profiles.Store) error {
				episodeProfiles, err := store.ListEpisodeProfiles(cmd.Context())
				if err != nil {
					return err
				}
				speakerProfiles, err := store.ListSpeakerProfiles(cmd.Context())
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd, map[string]any{
						"episode_profiles": episodeProfiles,
						"speaker_profiles": speakerProfiles,
					})
				}

				stdout := cmd.OutOrStdout()
				fmt.Fprintln(stdout, "Episode profiles:")
				if len(episodeProfiles) == 0 {
					fmt.Fprintln(stdout, "  none")
				} else {
					rows := make([][]string, 0, len(episodeProfiles))
					for _, profile := range episodeProfiles {
						rows = append(rows, []string{
							profile.Name,
							fmt.Sprintf("%d", profile.NumSegments),
							profile.OutlineProvider + "/" + profile.OutlineModel,
							profile.TranscriptProvider + "/" + profile.TranscriptModel,
							profile.Description,
						})
					}
					table := renderTable(
						[]string{"Name", "Segments", "Outline", "Transcript", "Description"},
						rows,
						[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
					)
					fmt.Fprintln(stdout, table)
				}

				fmt.Fprintln(stdout)
				fmt.Fprintln(stdout, "Speaker profiles:")
				if len(speakerProfiles) == 0 {
					fmt.Fprintln(stdout, "  none")
				} else {
					rows := make([][]string, 0, len(speakerProfiles))
					for _, profile := range speakerProfiles {
						names := make([]string, 0, len(profile.Speakers))
						for _, speaker := range profile.Speakers {
							names = append(names, speaker.Name)
						}
						rows = append(rows, []string{
							profile.Name,
							profile.TTSProvider + "/" + profile.TTSModel,
							strings.Join(names, ", "),
							profile.Description,
						})
					}
					table := renderTable(
						[]string{"Name", "TTS", "Speakers", "Description"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
					)
					fmt.Fprintln(stdout, table)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of tables")
	return cmd
}

func newProfilesImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.toml>",
		Short: "Import profiles from a TOML bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfileStore(ctx, cmd.Context(), func(store *profiles.Store) error {
				result, err := store.ImportFile(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d episode profile(s) and %d speaker profile(s)\n",
					result.EpisodeProfiles, result.SpeakerProfiles)
				return nil
			})
		},
	}
}

// withProfileStore opens the local database and seeds the built-in profiles
// so a fresh install lists something useful.
func withProfileStore(ctx *commandContext, callCtx context.Context, fn func(*profiles.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	db, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store := profiles.NewStore(db)
	if err := store.EnsureSeeds(callCtx); err != nil {
		return err
	}
	return fn(store)
}
