package cmd

import (
	"fmt"

	"github.com/chazu/qcircuits/pkg/element"
	"github.com/spf13/cobra"
	"honnef.co/go/curve"
)

var (
	solveFrom       []float64
	solveFromCorner []float64
	solveTo         []float64
	solveToCorner   []float64
	solveLength     float64
	solveBridges    int
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a fixed-length U-shaped bend between two points",
	Long: `Build the route from -> corner -> corner -> to whose legs extend toward
the two corner points, and solve the leg length so the route has the
requested total length.

Examples:
  qcroute solve --from 0,0 --from-corner 0,100 --to 300,0 --to-corner 300,100 --length 1000
  qcroute solve --from 0,0 --from-corner 0,-1 --to 500,0 --to-corner 500,-1 --length 2000 --bridges 4`,
	Args: cobra.NoArgs,
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)

	solveCmd.Flags().Float64SliceVar(&solveFrom, "from", nil, "start point x,y")
	solveCmd.Flags().Float64SliceVar(&solveFromCorner, "from-corner", nil, "point the first leg heads toward x,y")
	solveCmd.Flags().Float64SliceVar(&solveTo, "to", nil, "end point x,y")
	solveCmd.Flags().Float64SliceVar(&solveToCorner, "to-corner", nil, "point the last leg heads toward x,y")
	solveCmd.Flags().Float64Var(&solveLength, "length", 0, "target route length")
	solveCmd.Flags().IntVar(&solveBridges, "bridges", 0, "airbridges on the middle run")
	for _, name := range []string{"from", "from-corner", "to", "to-corner", "length"} {
		solveCmd.MarkFlagRequired(name)
	}
}

func point(flag string, v []float64) (curve.Point, error) {
	if len(v) != 2 {
		return curve.Point{}, fmt.Errorf("--%s needs x,y, got %d values", flag, len(v))
	}
	return curve.Pt(v[0], v[1]), nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	var pts [4]curve.Point
	for i, f := range []struct {
		name string
		v    []float64
	}{
		{"from", solveFrom},
		{"from-corner", solveFromCorner},
		{"to", solveTo},
		{"to-corner", solveToCorner},
	} {
		p, err := point(f.name, f.v)
		if err != nil {
			return err
		}
		pts[i] = p
	}
	if solveLength <= 0 {
		return fmt.Errorf("--length %g must be positive", solveLength)
	}
	if solveBridges < 0 {
		return fmt.Errorf("--bridges %d must not be negative", solveBridges)
	}

	sol, err := newRouter().FixedLengthBend(pts[0], pts[1], pts[2], pts[3], solveLength, solveBridges)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Fixed-length bend %s -> %s\n", pts[0], pts[2])
	fmt.Fprintf(out, "  leg:        %.6f\n", sol.X)
	fmt.Fprintf(out, "  length:     %.6f\n", sol.Length)
	fmt.Fprintf(out, "  iterations: %d\n", sol.Iterations)
	fmt.Fprintf(out, "  bends:      %d\n", sol.Bends)
	fmt.Fprintf(out, "  airbridges: %d\n", sol.Count(element.KindAirbridge))
	return nil
}
