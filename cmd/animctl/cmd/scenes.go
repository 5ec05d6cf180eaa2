package cmd

import (
	"github.com/spf13/cobra"
)

var scenesCmd = &cobra.Command{
	Use:   "scenes [story_id]",
	Short: "List the stored scenes of a story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().Scenes(args[0])
		if err != nil {
			return err
		}

		cmd.Printf("%s (%s)\n", resp.Story.Title, resp.Story.ID)
		for _, sc := range resp.Scenes {
			cmd.Printf("  %d. [%ds] %s\n", sc.SceneNumber, sc.DurationEstimate, sc.VisualDescription)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scenesCmd)
}
