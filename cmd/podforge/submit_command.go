package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podforge/internal/api"
	"podforge/internal/daemon"
	"podforge/internal/ipc"
	"podforge/internal/logging"
	"podforge/internal/profiles"
	"podforge/internal/storage"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		episodeProfile string
		speakerProfile string
		episodeName    string
		briefingSuffix string
		owner          string
		contentFile    string
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "submit [content]",
		Short: "Submit a podcast generation job",
		Long: "Submit source content for podcast generation. Content comes from the\n" +
			"positional argument, from --content-file, or from stdin when the\n" +
			"argument is \"-\".",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := resolveContent(cmd.InOrStdin(), args, contentFile)
			if err != nil {
				return err
			}

			name := strings.TrimSpace(episodeName)
			if name == "" {
				name = defaultEpisodeName(strings.TrimSpace(episodeProfile))
			}

			req := api.SubmitGenerationRequest{
				EpisodeProfile: strings.TrimSpace(episodeProfile),
				SpeakerProfile: strings.TrimSpace(speakerProfile),
				EpisodeName:    name,
				Content:        content,
				BriefingSuffix: briefingSuffix,
				Owner:          strings.TrimSpace(owner),
			}

			receipt, viaDaemon, err := submitGeneration(ctx, cmd, req)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, receipt)
			}
			stdout := cmd.OutOrStdout()
			if !viaDaemon {
				fmt.Fprintln(stdout, "Daemon is not running; job queued for the next daemon start")
			}
			fmt.Fprintln(stdout, receipt.Message)
			fmt.Fprintf(stdout, "Job: %s\n", receipt.JobID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&episodeProfile, "episode-profile", "p", "", "Episode profile name (required)")
	cmd.Flags().StringVarP(&speakerProfile, "speaker-profile", "s", "", "Speaker profile name (required)")
	cmd.Flags().StringVarP(&episodeName, "name", "n", "", "Episode name (defaults to the profile name plus a timestamp)")
	cmd.Flags().StringVarP(&briefingSuffix, "briefing", "b", "", "Additional briefing instructions")
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Episode owner")
	cmd.Flags().StringVarP(&contentFile, "content-file", "f", "", "Read source content from a file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the submission receipt as JSON")
	_ = cmd.MarkFlagRequired("episode-profile")
	_ = cmd.MarkFlagRequired("speaker-profile")

	return cmd
}

func defaultEpisodeName(profile string) string {
	stamp := time.Now().UTC().Format("20060102-150405")
	if profile == "" {
		return "episode-" + stamp
	}
	return profile + "-" + stamp
}

func resolveContent(stdin io.Reader, args []string, contentFile string) (string, error) {
	contentFile = strings.TrimSpace(contentFile)
	if contentFile != "" {
		data, err := os.ReadFile(contentFile)
		if err != nil {
			return "", fmt.Errorf("read content file: %w", err)
		}
		return string(data), nil
	}
	if len(args) == 0 {
		return "", errors.New("content is required: pass it as an argument, via --content-file, or as \"-\" for stdin")
	}
	if args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	return args[0], nil
}

// submitGeneration submits over IPC when the daemon is reachable. When it is
// not, the job is persisted directly so the executor's requeue sweep picks
// it up on the next daemon start.
func submitGeneration(ctx *commandContext, cmd *cobra.Command, req api.SubmitGenerationRequest) (api.GenerationReceipt, bool, error) {
	if client, dialErr := ipc.Dial(ctx.socketPath()); dialErr == nil {
		defer client.Close()
		resp, err := client.Submit(req)
		if err != nil {
			return api.GenerationReceipt{}, true, err
		}
		if resp == nil {
			return api.GenerationReceipt{}, true, errors.New("empty response from daemon")
		}
		return resp.Receipt, true, nil
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return api.GenerationReceipt{}, false, err
	}
	db, err := storage.Open(cfg)
	if err != nil {
		return api.GenerationReceipt{}, false, err
	}
	defer db.Close()

	// The daemon seeds the starter profiles on start; seed here too so a
	// submission against a fresh database can resolve them.
	if err := profiles.NewStore(db).EnsureSeeds(cmd.Context()); err != nil {
		return api.GenerationReceipt{}, false, err
	}

	d, err := daemon.New(cfg, db, logging.NewNop())
	if err != nil {
		return api.GenerationReceipt{}, false, err
	}
	receipt, err := d.GenerationService().Submit(cmd.Context(), req)
	return receipt, false, err
}
