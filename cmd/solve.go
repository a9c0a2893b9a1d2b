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
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/injectionflow/platedist/InputParameters"
	"github.com/injectionflow/platedist/catalog"
	"github.com/injectionflow/platedist/pipeline"
)

// SolveOptions are the solve command inputs after flag and config merging
type SolveOptions struct {
	Catalog    string
	ParamsFile string
	DataDir    string // Overrides the parameter file when not empty
	Workers    int    // Overrides the parameter file when not negative
	Formats    []string
	Verbose    bool
}

// SolveCmd represents the solve command
var SolveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve the flow distance problems of every plate in a case catalog",
	Long: `
Reads the case catalog, then for each plate and injection location reads
data/<plate>/<plate>_<x>_<y>_study.msh and writes the distance from the
injection point (D_i) and from the walls (D_w) next to it,

platedist solve --catalog models.yaml --params solver.yaml --workers 4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := SolveOptions{
			Catalog:    viper.GetString("catalog"),
			ParamsFile: viper.GetString("params"),
			Workers:    -1,
			Verbose:    viper.GetBool("verbose"),
		}
		if viper.IsSet("data") {
			opts.DataDir = viper.GetString("data")
		}
		if viper.IsSet("workers") {
			opts.Workers = viper.GetInt("workers")
		}
		if viper.IsSet("format") {
			opts.Formats = viper.GetStringSlice("format")
		}
		s, err := Solve(cmd.Context(), opts)
		if err != nil {
			return err
		}
		log.Printf("Wrote %d files for %d cases in %s", len(s.Written), s.Cases, s.Elapsed)
		return nil
	},
}

// LoadParameters reads a parameter file over the defaults; an empty path
// gives the defaults
func LoadParameters(path string) (ip *InputParameters.SolverParameters, err error) {
	ip = InputParameters.NewSolverParameters()
	if path == "" {
		return
	}
	var data []byte
	if data, err = os.ReadFile(path); err != nil {
		return nil, err
	}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return
}

func Solve(ctx context.Context, opts SolveOptions) (s pipeline.Summary, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	params, err := LoadParameters(opts.ParamsFile)
	if err != nil {
		return
	}
	if opts.DataDir != "" {
		params.DataDir = opts.DataDir
	}
	if opts.Workers >= 0 {
		params.Workers = opts.Workers
	}
	if len(opts.Formats) > 0 {
		params.OutputFormats = opts.Formats
	}
	if err = params.Validate(); err != nil {
		return
	}
	if opts.Verbose {
		params.Print()
	}
	cat, err := catalog.ReadFile(opts.Catalog)
	if err != nil {
		return
	}
	return pipeline.Runner{Params: params, Verbose: opts.Verbose}.Run(ctx, cat)
}

func init() {
	rootCmd.AddCommand(SolveCmd)
	SolveCmd.Flags().StringP("catalog", "c", "models.yaml", "YAML case catalog of plates and injection locations")
	SolveCmd.Flags().StringP("params", "p", "", "YAML solver parameter file, defaults are used when empty")
	SolveCmd.Flags().StringP("data", "d", "data", "directory holding the <plate>/ study mesh directories")
	SolveCmd.Flags().IntP("workers", "w", 1, "cases solved concurrently, 0 uses every CPU")
	SolveCmd.Flags().StringSlice("format", nil, "output formats: vtk, avs")
	for _, name := range []string{"catalog", "params", "data", "workers", "format"} {
		_ = viper.BindPFlag(name, SolveCmd.Flags().Lookup(name))
	}
}
