package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/injectionflow/platedist/InputParameters"
	"github.com/injectionflow/platedist/catalog"
	"github.com/injectionflow/platedist/meshgen"
	"github.com/injectionflow/platedist/plates"
)

const models = `
A:
  plate: [100, 50]
  injection_locations:
    - [[10, 20], x]
B:
  plate: [40, 40]
  injection_locations:
    - [[20, 20], y]
    - [[0, 0], z]
`

// recorder collects log lines from concurrent workers
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) logf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func setup(t *testing.T) (*catalog.Catalog, *InputParameters.SolverParameters) {
	t.Helper()
	cat, err := catalog.Parse([]byte(models))
	require.NoError(t, err)
	params := InputParameters.NewSolverParameters()
	params.DataDir = t.TempDir()
	_, err = meshgen.WriteCatalog(cat, params.DataDir, 10, false)
	require.NoError(t, err)
	return cat, params
}

// vtkHeader returns the POINTS and POINT_DATA counts and the scalar names
func vtkHeader(t *testing.T, path string) (points, pointData int, scalars []string) {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "POINTS "):
			fmt.Sscanf(line, "POINTS %d", &points)
		case strings.HasPrefix(line, "POINT_DATA "):
			fmt.Sscanf(line, "POINT_DATA %d", &pointData)
		case strings.HasPrefix(line, "SCALARS "):
			scalars = append(scalars, strings.Fields(line)[1])
		}
	}
	require.NoError(t, sc.Err())
	return
}

func TestRunSequential(t *testing.T) {
	cat, params := setup(t)
	rec := &recorder{}
	s, err := Run(context.Background(), cat, params, rec.logf)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Cases)
	assert.Equal(t, []string{
		filepath.Join(params.DataDir, "A", "A_10_20_study.vtk"),
		filepath.Join(params.DataDir, "B", "B_20_20_study.vtk"),
		filepath.Join(params.DataDir, "B", "B_0_0_study.vtk"),
	}, s.Written)
	assert.Equal(t, "Computing plate A", rec.lines[0])
	var plateLines []string
	for _, l := range rec.lines {
		if strings.HasPrefix(l, "Computing plate") {
			plateLines = append(plateLines, l)
		}
	}
	assert.Equal(t, []string{"Computing plate A", "Computing plate B"}, plateLines)

	for _, path := range s.Written {
		points, pointData, scalars := vtkHeader(t, path)
		assert.Positive(t, points)
		assert.Equal(t, points, pointData)
		assert.Equal(t, []string{"D_i", "D_w"}, scalars)
	}
}

func TestRunParallelMatchesSequential(t *testing.T) {
	cat, params := setup(t)
	params.OutputFormats = []string{"vtk", "avs"}
	params.VTKEncoding = "binary"
	s1, err := Run(context.Background(), cat, params, (&recorder{}).logf)
	require.NoError(t, err)
	first := make(map[string][]byte)
	for _, path := range s1.Written {
		first[path], err = os.ReadFile(path)
		require.NoError(t, err)
	}
	require.Len(t, first, 6)

	params.Workers = 3
	rec := &recorder{}
	s2, err := Runner{Params: params, Logf: rec.logf, Verbose: true}.Run(context.Background(), cat)
	require.NoError(t, err)
	assert.Equal(t, s1.Written, s2.Written)
	for _, path := range s2.Written {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equalf(t, first[path], data, path)
	}
	var newton int
	for _, l := range rec.lines {
		if strings.Contains(l, "newton") {
			newton++
		}
	}
	assert.Positive(t, newton)
}

func TestRunFailFast(t *testing.T) {
	for _, workers := range []int{1, 2} {
		cat, params := setup(t)
		params.Workers = workers
		// The first case of B has no mesh
		require.NoError(t, os.Remove(filepath.Join(params.DataDir, "B", "B_20_20_study.msh")))
		s, err := Run(context.Background(), cat, params, (&recorder{}).logf)
		var ce *plates.CaseError
		require.ErrorAsf(t, err, &ce, "workers %d", workers)
		assert.Equal(t, "B", ce.Plate)
		assert.Equal(t, 20., ce.Injection.X)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, 3, s.Cases)
		if workers == 1 {
			// The case after the failure never runs
			assert.Len(t, s.Written, 1)
			_, err := os.Stat(filepath.Join(params.DataDir, "B", "B_0_0_study.vtk"))
			assert.ErrorIs(t, err, os.ErrNotExist)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	cat, params := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, workers := range []int{1, 3} {
		params.Workers = workers
		s, err := Run(ctx, cat, params, (&recorder{}).logf)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, s.Written)
	}
}

func TestRunInvalidParameters(t *testing.T) {
	cat, params := setup(t)
	params.Sigma = 1.5
	_, err := Run(context.Background(), cat, params, nil)
	assert.ErrorIs(t, err, InputParameters.ErrInvalidParameter)

	_, err = WriteResult(filepath.Join(t.TempDir(), "x"), &plates.Result{}, &InputParameters.SolverParameters{})
	assert.ErrorIs(t, err, InputParameters.ErrInvalidParameter)
}
