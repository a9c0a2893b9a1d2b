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
	"github.com/spf13/cobra"

	"github.com/injectionflow/platedist/convert"
)

// ConvertCmd represents the convert command
var ConvertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a Moldflow Patran mesh and XML results to a Gmsh mesh",
	Long: `
Reads a Patran neutral file and its Moldflow XML result files, appends the
[3:6] columns of every multi-column point field, drops cell data and writes
a Gmsh 2.2 file next to the input,

platedist convert --input control_arm/control_arm.pat --scale 1000 --binary`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var opts convert.Options
		flags := cmd.Flags()
		if opts.Input, err = flags.GetString("input"); err != nil {
			return
		}
		opts.Scale, _ = flags.GetFloat64("scale")
		opts.XMLFiles, _ = flags.GetStringSlice("xml")
		opts.Output, _ = flags.GetString("output")
		opts.Binary, _ = flags.GetBool("binary")
		_, err = convert.Convert(opts)
		return
	},
}

func init() {
	rootCmd.AddCommand(ConvertCmd)
	ConvertCmd.Flags().StringP("input", "i", "", "Patran neutral (.pat) file")
	ConvertCmd.Flags().Float64P("scale", "s", 1, "coordinate scale factor, 1000 converts meters to millimeters")
	ConvertCmd.Flags().StringSliceP("xml", "x", nil, "Moldflow XML result files, default fill_time.xml and fiber_orientation.xml next to the input")
	ConvertCmd.Flags().StringP("output", "o", "", "output file, default the input with a .msh extension")
	ConvertCmd.Flags().BoolP("binary", "b", false, "write binary Gmsh")
	_ = ConvertCmd.MarkFlagRequired("input")
}
