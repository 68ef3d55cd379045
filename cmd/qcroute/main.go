// Command qcroute compiles composite coplanar waveguide routes for
// superconducting chips and exports their mask geometry.
package main

import "github.com/chazu/qcircuits/cmd/qcroute/cmd"

func main() {
	cmd.Execute()
}
