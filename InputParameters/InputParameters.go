package InputParameters

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ghodss/yaml"
)

var ErrInvalidParameter = errors.New("parameters: invalid solver parameter")

// Distance policies for the derived field D = 1/G - 1/G0 where G vanishes
const (
	DistanceMask      = "mask"      // NaN where |G| < SingularityEpsilon
	DistancePropagate = "propagate" // IEEE result, Inf or NaN
	DistanceClamp     = "clamp"     // |G| raised to SingularityEpsilon
)

// Output formats and VTK encodings
const (
	FormatVTK = "vtk"
	FormatAVS = "avs"

	EncodingASCII  = "ascii"
	EncodingBinary = "binary"
)

// Linear solvers for the Newton correction
const (
	SolverAuto   = "auto"
	SolverDirect = "direct"
	SolverGMRES  = "gmres"
	SolverCG     = "cg"
)

// SolverParameters are obtained from the YAML parameter file. Keys are the
// field names.
type SolverParameters struct {
	Title               string   `json:"Title"`
	Sigma               float64  `json:"Sigma"`
	QuadratureDegree    int      `json:"QuadratureDegree"`
	NewtonTolerance     float64  `json:"NewtonTolerance"`
	MaxNewtonIterations int      `json:"MaxNewtonIterations"`
	DropTolerance       float64  `json:"DropTolerance"`
	InletTolerance      float64  `json:"InletTolerance"`
	SampleRefinement    int      `json:"SampleRefinement"`
	DistancePolicy      string   `json:"DistancePolicy"`
	SingularityEpsilon  float64  `json:"SingularityEpsilon"`
	Workers             int      `json:"Workers"` // 0 uses every CPU
	OutputFormats       []string `json:"OutputFormats"`
	VTKEncoding         string   `json:"VTKEncoding"`
	DataDir             string   `json:"DataDir"`
	LinearSolver        string   `json:"LinearSolver"`
	DirectSolveLimit    int      `json:"DirectSolveLimit"` // Free DOF count above which auto uses GMRES
}

// NewSolverParameters returns the defaults; Parse overlays a file on them
// so that explicit zeros, e.g. Sigma: 0, are kept
func NewSolverParameters() (ip *SolverParameters) {
	ip = &SolverParameters{}
	ip.Defaults()
	ip.Workers = 1
	return
}

func (ip *SolverParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, ip); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return nil
}

// Defaults fills zero valued fields
func (ip *SolverParameters) Defaults() {
	if ip.Title == "" {
		ip.Title = "plate flow distance"
	}
	if ip.Sigma == 0 {
		ip.Sigma = 0.1
	}
	if ip.QuadratureDegree == 0 {
		ip.QuadratureDegree = 2
	}
	if ip.NewtonTolerance == 0 {
		ip.NewtonTolerance = 1e-10
	}
	if ip.MaxNewtonIterations == 0 {
		ip.MaxNewtonIterations = 50
	}
	if ip.DropTolerance == 0 {
		ip.DropTolerance = 1e-15
	}
	if ip.InletTolerance == 0 {
		ip.InletTolerance = 5.0
	}
	if ip.SampleRefinement == 0 {
		ip.SampleRefinement = 2
	}
	if ip.DistancePolicy == "" {
		ip.DistancePolicy = DistanceMask
	}
	if ip.SingularityEpsilon == 0 {
		ip.SingularityEpsilon = 1e-12
	}
	if len(ip.OutputFormats) == 0 {
		ip.OutputFormats = []string{FormatVTK}
	}
	if ip.VTKEncoding == "" {
		ip.VTKEncoding = EncodingASCII
	}
	if ip.DataDir == "" {
		ip.DataDir = "data"
	}
	if ip.LinearSolver == "" {
		ip.LinearSolver = SolverAuto
	}
	if ip.DirectSolveLimit == 0 {
		ip.DirectSolveLimit = 1000
	}
}

func (ip *SolverParameters) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidParameter}, args...)...)
	}
	oneOf := func(name, val string, allowed ...string) error {
		for _, a := range allowed {
			if strings.EqualFold(val, a) {
				return nil
			}
		}
		return bad("%s %q, want one of %v", name, val, allowed)
	}
	switch {
	case ip.Sigma < 0 || ip.Sigma >= 1:
		return bad("Sigma %g outside [0,1)", ip.Sigma)
	case ip.QuadratureDegree < 1 || ip.QuadratureDegree > 4:
		return bad("QuadratureDegree %d outside [1,4]", ip.QuadratureDegree)
	case ip.NewtonTolerance <= 0:
		return bad("NewtonTolerance %g", ip.NewtonTolerance)
	case ip.MaxNewtonIterations < 1:
		return bad("MaxNewtonIterations %d", ip.MaxNewtonIterations)
	case ip.DropTolerance < 0:
		return bad("DropTolerance %g", ip.DropTolerance)
	case ip.InletTolerance <= 0:
		return bad("InletTolerance %g", ip.InletTolerance)
	case ip.SampleRefinement < 2:
		return bad("SampleRefinement %d below 2", ip.SampleRefinement)
	case ip.SingularityEpsilon <= 0:
		return bad("SingularityEpsilon %g", ip.SingularityEpsilon)
	case ip.Workers < 0:
		return bad("Workers %d", ip.Workers)
	case ip.DirectSolveLimit < 0:
		return bad("DirectSolveLimit %d", ip.DirectSolveLimit)
	}
	if err := oneOf("DistancePolicy", ip.DistancePolicy, DistanceMask, DistancePropagate, DistanceClamp); err != nil {
		return err
	}
	if err := oneOf("VTKEncoding", ip.VTKEncoding, EncodingASCII, EncodingBinary); err != nil {
		return err
	}
	if err := oneOf("LinearSolver", ip.LinearSolver, SolverAuto, SolverDirect, SolverGMRES, SolverCG); err != nil {
		return err
	}
	for _, f := range ip.OutputFormats {
		if err := oneOf("OutputFormats", f, FormatVTK, FormatAVS); err != nil {
			return err
		}
	}
	return nil
}

// WantsFormat reports whether the output format is requested
func (ip *SolverParameters) WantsFormat(format string) bool {
	for _, f := range ip.OutputFormats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

func (ip *SolverParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%8.5f\t\t= Sigma\n", ip.Sigma)
	fmt.Printf("[%d]\t\t\t\t= Quadrature Degree\n", ip.QuadratureDegree)
	fmt.Printf("%8.2e\t\t= Newton Tolerance\n", ip.NewtonTolerance)
	fmt.Printf("[%d]\t\t\t\t= Max Newton Iterations\n", ip.MaxNewtonIterations)
	fmt.Printf("%8.2e\t\t= Drop Tolerance\n", ip.DropTolerance)
	fmt.Printf("%8.5f\t\t= Inlet Tolerance\n", ip.InletTolerance)
	fmt.Printf("[%d]\t\t\t\t= Sample Refinement\n", ip.SampleRefinement)
	fmt.Printf("[%s]\t\t\t= Distance Policy\n", ip.DistancePolicy)
	fmt.Printf("[%s]\t\t\t= Linear Solver\n", ip.LinearSolver)
	fmt.Printf("[%d]\t\t\t\t= Workers\n", ip.Workers)
	fmt.Printf("%v\t\t\t= Output Formats\n", ip.OutputFormats)
	fmt.Printf("[%s]\t\t\t= VTK Encoding\n", ip.VTKEncoding)
	fmt.Printf("[%s]\t\t\t= Data Directory\n", ip.DataDir)
}
