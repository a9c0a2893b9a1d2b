// Package pipeline runs every case of a catalog: solve, then write the
// requested outputs next to the study mesh.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/injectionflow/platedist/InputParameters"
	"github.com/injectionflow/platedist/catalog"
	"github.com/injectionflow/platedist/export"
	"github.com/injectionflow/platedist/plates"
	"github.com/injectionflow/platedist/utils"
)

// Summary of a batch run
type Summary struct {
	Cases   int
	Written []string // Output files in case order
	Elapsed time.Duration
}

// Runner solves catalog cases with one set of parameters
type Runner struct {
	Params  *InputParameters.SolverParameters
	Logf    func(format string, args ...any) // nil uses log.Printf
	Verbose bool                             // Log Newton residuals
}

// Run processes every case of cat with the parameters' worker count
func Run(ctx context.Context, cat *catalog.Catalog, params *InputParameters.SolverParameters,
	logf func(format string, args ...any)) (Summary, error) {
	return Runner{Params: params, Logf: logf}.Run(ctx, cat)
}

// Run stops at the first failure. With one worker the cases run in catalog
// order; with more, contiguous shards of the case list run concurrently,
// the first failure cancels the shards and the failure earliest in catalog
// order is returned.
func (r Runner) Run(ctx context.Context, cat *catalog.Catalog) (s Summary, err error) {
	start := time.Now()
	defer func() { s.Elapsed = time.Since(start) }()
	if err = r.Params.Validate(); err != nil {
		return
	}
	var (
		cases   = cat.Cases(r.Params.DataDir)
		written = make([][]string, len(cases))
		np      = utils.ResolveParallelDegree(r.Params.Workers, len(cases))
	)
	s.Cases = len(cases)
	if np <= 1 {
		for i, c := range cases {
			if err = ctx.Err(); err != nil {
				return
			}
			if i == 0 || cases[i-1].Plate != c.Plate {
				r.logf("Computing plate %s", c.Plate)
			}
			if written[i], err = r.runCase(c); err != nil {
				return
			}
			s.Written = append(s.Written, written[i]...)
		}
		return
	}

	var (
		pm          = utils.NewPartitionMap(np, len(cases))
		errs        = make([]error, len(cases))
		wg          sync.WaitGroup
		cctx, abort = context.WithCancel(ctx)
	)
	defer abort()
	r.logf("Computing %d cases with %d workers", len(cases), pm.ParallelDegree)
	for n := 0; n < pm.ParallelDegree; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			kMin, kMax := pm.GetBucketRange(n)
			for i := kMin; i < kMax; i++ {
				if cctx.Err() != nil {
					return
				}
				r.logf("Computing case %s", cases[i])
				if written[i], errs[i] = r.runCase(cases[i]); errs[i] != nil {
					abort()
					return
				}
			}
		}(n)
	}
	wg.Wait()
	for i := range cases {
		if errs[i] != nil {
			return s, errs[i]
		}
		s.Written = append(s.Written, written[i]...)
	}
	// Cancelled from outside before every case ran
	err = ctx.Err()
	return
}

func (r Runner) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (r Runner) runCase(c catalog.Case) (paths []string, err error) {
	var newtonLog func(string, ...any)
	if r.Verbose {
		newtonLog = func(format string, args ...any) {
			r.logf("%s: "+format, append([]any{c}, args...)...)
		}
	}
	res, err := plates.RunCase(c, r.Params, newtonLog)
	if err != nil {
		return
	}
	r.logf("%s: %d DOFs, Newton iterations inlet %d walls %d",
		c, res.Dofs, res.NewtonInlet.Iterations, res.NewtonWalls.Iterations)
	if nNaN, nInf := utils.CountNonFinite(res.DI); nNaN+nInf > 0 {
		r.logf("%s: D_i has %d masked and %d infinite points", c, nNaN, nInf)
	}
	if paths, err = WriteResult(c.OutputBase, res, r.Params); err != nil {
		return nil, &plates.CaseError{Plate: c.Plate, Injection: c.Injection, MeshPath: c.MeshPath, Err: err}
	}
	return
}

// WriteResult writes D_i and D_w in every requested format at base
func WriteResult(base string, res *plates.Result, params *InputParameters.SolverParameters) (paths []string, err error) {
	fields := []export.Field{
		{Name: "D_i", Values: res.DI},
		{Name: "D_w", Values: res.DW},
	}
	if params.WantsFormat(InputParameters.FormatVTK) {
		enc, err := export.ParseEncoding(params.VTKEncoding)
		if err != nil {
			return nil, err
		}
		path, err := export.WriteVTK(base, res.Tri, res.X, fields, enc)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	if params.WantsFormat(InputParameters.FormatAVS) {
		path, err := export.WriteAVS(base, res.Tri, res.X, fields)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no output format in %v", InputParameters.ErrInvalidParameter, params.OutputFormats)
	}
	return
}
