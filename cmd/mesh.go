/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/injectionflow/platedist/catalog"
	"github.com/injectionflow/platedist/meshgen"
)

// MeshCmd represents the mesh command
var MeshCmd = &cobra.Command{
	Use:   "mesh",
	Short: "Generate the study meshes of a case catalog",
	Long: `
Writes a triangle lattice of each plate with a vertex at the injection
location, at the path the solve command reads,

platedist mesh --catalog models.yaml --size 2.5`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			flags   = cmd.Flags()
			path, _ = flags.GetString("catalog")
			data, _ = flags.GetString("data")
			size, _ = flags.GetFloat64("size")
			bin, _  = flags.GetBool("binary")
		)
		cat, err := catalog.ReadFile(path)
		if err != nil {
			return
		}
		paths, err := meshgen.WriteCatalog(cat, data, size, bin)
		if err != nil {
			return
		}
		log.Printf("Wrote %d study meshes", len(paths))
		return
	},
}

func init() {
	rootCmd.AddCommand(MeshCmd)
	MeshCmd.Flags().StringP("catalog", "c", "models.yaml", "YAML case catalog of plates and injection locations")
	MeshCmd.Flags().StringP("data", "d", "data", "directory receiving the <plate>/ study mesh directories")
	MeshCmd.Flags().Float64P("size", "s", 2.5, "target element edge length")
	MeshCmd.Flags().BoolP("binary", "b", false, "write binary Gmsh")
}
