package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/trackwise/internal/curriculum"
	"github.com/abhisek/trackwise/internal/lesson"
	"github.com/abhisek/trackwise/internal/ui/report"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Manage learning tracks",
}

var trackImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import a track from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := curriculum.LoadTrackFile(args[0])
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.ImportTrack(cmd.Context(), t); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%d units)\n", t.ID, len(t.Units))
		return nil
	},
}

var trackGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a track with the configured LLM provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		goal, _ := cmd.Flags().GetString("goal")
		lessons, _ := cmd.Flags().GetInt("lessons")
		id, _ := cmd.Flags().GetString("id")
		out, _ := cmd.Flags().GetString("output")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.Generator(cmd.Context())
		if err != nil {
			return err
		}
		t, err := g.Generate(cmd.Context(), curriculum.PlanRequest{ID: id, Subject: subject, Goal: goal, Lessons: lessons})
		if err != nil {
			return err
		}

		if out != "" {
			if err := writeTrackFile(out, t); err != nil {
				return err
			}
		}
		if dryRun {
			return curriculum.WriteTrack(cmd.OutOrStdout(), t)
		}
		if err := a.Service.ImportTrack(cmd.Context(), t); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated %s: %s (%d units)\n", t.ID, t.Title, len(t.Units))
		return nil
	},
}

var trackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported tracks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		tracks, err := a.Service.ListTracks(cmd.Context())
		if err != nil {
			return err
		}
		if len(tracks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tracks yet. Import one with `trackwise track import`.")
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), report.Tracks(tracks))
		return nil
	},
}

func init() {
	trackGenerateCmd.Flags().String("subject", "", "Subject to study (required)")
	trackGenerateCmd.Flags().String("goal", "", "What you want to be able to do")
	trackGenerateCmd.Flags().Int("lessons", 10, "Number of lessons")
	trackGenerateCmd.Flags().String("id", "", "Track id (derived from the subject by default)")
	trackGenerateCmd.Flags().StringP("output", "o", "", "Also write the track to this YAML file")
	trackGenerateCmd.Flags().Bool("dry-run", false, "Print the track instead of importing it")
	trackGenerateCmd.MarkFlagRequired("subject")

	trackCmd.AddCommand(trackImportCmd)
	trackCmd.AddCommand(trackGenerateCmd)
	trackCmd.AddCommand(trackListCmd)
}

func writeTrackFile(path string, t lesson.Track) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := curriculum.WriteTrack(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
