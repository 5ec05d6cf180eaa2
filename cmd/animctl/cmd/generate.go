package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"shortshive/internal/animation"
	"shortshive/internal/domain/jsoncfg"
)

// requestFile is the on-disk shape of a generation request. Keys match the
// JSON body the server accepts.
type requestFile struct {
	StoryID string `yaml:"story_id"`
	Scenes  []struct {
		SceneNumber         int    `yaml:"scene_number"`
		DurationEstimate    int    `yaml:"duration_estimate"`
		VisualDescription   string `yaml:"visual_description"`
		DialogueOrNarration string `yaml:"dialogue_or_narration"`
	} `yaml:"scenes"`
	VisualSettings struct {
		ColorPalette string `yaml:"color_palette"`
		AspectRatio  string `yaml:"aspect_ratio"`
		Title        string `yaml:"title"`
		Emotion      string `yaml:"emotion"`
		VoiceStyle   string `yaml:"voice_style"`
		Characters   []struct {
			Name        string `yaml:"name"`
			Description string `yaml:"description"`
		} `yaml:"characters"`
	} `yaml:"visual_settings"`
}

func (f requestFile) toRequest() animation.GenerateRequest {
	req := animation.GenerateRequest{
		StoryID: f.StoryID,
		VisualSettings: jsoncfg.VisualSettings{
			ColorPalette: f.VisualSettings.ColorPalette,
			AspectRatio:  f.VisualSettings.AspectRatio,
			Title:        f.VisualSettings.Title,
			Emotion:      f.VisualSettings.Emotion,
			VoiceStyle:   f.VisualSettings.VoiceStyle,
		},
	}
	for _, sc := range f.Scenes {
		req.Scenes = append(req.Scenes, animation.SceneInput{
			SceneNumber:         sc.SceneNumber,
			DurationEstimate:    sc.DurationEstimate,
			VisualDescription:   sc.VisualDescription,
			DialogueOrNarration: sc.DialogueOrNarration,
		})
	}
	for _, ch := range f.VisualSettings.Characters {
		req.VisualSettings.Characters = append(req.VisualSettings.Characters, jsoncfg.Character{
			Name:        ch.Name,
			Description: ch.Description,
		})
	}
	return req
}

func loadRequestFile(path string) (animation.GenerateRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return animation.GenerateRequest{}, fmt.Errorf("read request file: %w", err)
	}
	var f requestFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return animation.GenerateRequest{}, fmt.Errorf("parse request file: %w", err)
	}
	return f.toRequest(), nil
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one image per scene for a story",
	Long: `Submit a generation run described by a YAML (or JSON) file:

  story_id: 7c0e...
  visual_settings:
    color_palette: pixar
    aspect_ratio: "16:9"
  scenes:
    - scene_number: 1
      visual_description: A fox at dawn
      dialogue_or_narration: It begins.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			return fmt.Errorf("--file is required")
		}
		req, err := loadRequestFile(path)
		if err != nil {
			return err
		}

		result, err := newClient().Generate(req)
		if result != nil {
			for _, img := range result.Images {
				if img.Success {
					cmd.Printf("scene %d: %s\n", img.SceneNumber, img.ImageURL)
				} else {
					cmd.Printf("scene %d: failed (%s)\n", img.SceneNumber, img.Error)
				}
			}
			if len(result.FailedScenes) > 0 {
				cmd.Printf("Failed scenes: %v\n", result.FailedScenes)
			}
		}
		return err
	},
}

func init() {
	generateCmd.Flags().StringP("file", "f", "", "request file (YAML or JSON)")
	rootCmd.AddCommand(generateCmd)
}
