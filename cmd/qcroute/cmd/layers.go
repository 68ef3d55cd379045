package cmd

import (
	"fmt"

	"github.com/chazu/qcircuits/pkg/kernel"
	"github.com/spf13/cobra"
)

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "List the mask layers of every configured face",
	Args:  cobra.NoArgs,
	RunE:  runLayers,
}

func init() {
	rootCmd.AddCommand(layersCmd)
}

func runLayers(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, face := range cfg.Route.Faces {
		marker := ""
		if face == cfg.Route.Face {
			marker = " (default)"
		}
		fmt.Fprintf(out, "Face %s%s:\n", face, marker)
		for _, base := range kernel.BaseLayers {
			fmt.Fprintf(out, "  %s\n", kernel.FaceLayer(face, base))
		}
	}
	return nil
}
