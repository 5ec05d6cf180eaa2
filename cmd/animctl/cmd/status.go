package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [story_id]",
	Short: "Show generation progress for a story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := newClient().Status(args[0])
		if err != nil {
			return err
		}

		cmd.Printf("Story:    %s\n", args[0])
		cmd.Printf("Status:   %s\n", report.Status)
		cmd.Printf("Progress: %d%%\n", report.Progress)
		cmd.Printf("Storage:  %s\n", report.StorageType)
		for _, img := range report.Images {
			line := img.ImageURL
			if img.Status != "" {
				line += " [" + img.Status + "]"
			}
			cmd.Printf("  scene %d: %s\n", img.SceneNumber, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
