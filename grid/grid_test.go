package grid_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdtd-sdk/grid"
	"fdtd-sdk/models"
)

// quickstartInput is a (4,3,3) vacuum domain with a 1.5 µm box of permittivity
// 2 (n = sqrt(2)) at 0.75 µm wavelength.
func quickstartInput() grid.Input {
	box := grid.Region{
		Min:   models.Vec3{-0.75, -0.75, -0.75},
		Max:   models.Vec3{0.75, 0.75, 0.75},
		Index: 1.4142135623730951,
	}
	return grid.Input{
		Size:       models.Vec3{4, 3, 3},
		Background: 1,
		Regions:    []grid.Region{box},
		Wavelength: 0.75,
		Boundaries: models.DefaultBoundarySpec(),
	}
}

func TestAuto_ResolutionBound(t *testing.T) {
	cases := []struct {
		name     string
		minSteps float64
		size     models.Vec3
		wvl      float64
	}{
		{"quickstart", 10, models.Vec3{4, 3, 3}, 0.75},
		{"coarse", 6, models.Vec3{4, 3, 3}, 1.55},
		{"fine", 20, models.Vec3{2, 2, 0.5}, 0.5},
		{"thin domain", 10, models.Vec3{10, 0.05, 3}, 1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := quickstartInput()
			in.Size = tc.size
			in.Wavelength = tc.wvl

			g, err := grid.AutoSpec(tc.minSteps).Make(in)
			require.NoError(t, err)

			bound := tc.wvl / tc.minSteps
			for _, a := range models.Axes {
				assert.LessOrEqual(t, g.MaxStep(a), bound*(1+1e-9), "axis %s", a)
				assert.Positive(t, g.NumCells()[a])
			}
		})
	}
}

func TestAuto_RefinesInsideDielectric(t *testing.T) {
	in := quickstartInput()
	in.Boundaries = models.AllSides(models.Periodic())
	g, err := grid.AutoSpec(10).Make(in)
	require.NoError(t, err)

	inner := 0.75 / (1.4142135623730951 * 10)
	for i, c := range g.Centers(models.X) {
		if c > -0.75 && c < 0.75 {
			assert.LessOrEqual(t, g.Steps(models.X)[i], inner*(1+1e-9))
		}
	}
	// structure faces land on boundaries
	assert.Contains(t, g.Boundaries(models.X), -0.75)
	assert.Contains(t, g.Boundaries(models.X), 0.75)
}

func TestAuto_GradingRatio(t *testing.T) {
	in := quickstartInput()
	in.Regions[0].Index = 3.5
	in.Boundaries = models.AllSides(models.Periodic())
	g, err := grid.AutoSpec(10).Make(in)
	require.NoError(t, err)

	st := g.Steps(models.Y)
	for i := 1; i < len(st); i++ {
		ratio := st[i] / st[i-1]
		if ratio < 1 {
			ratio = 1 / ratio
		}
		// rescaling an interval to fit exactly may stretch the ratio at an interface
		assert.Less(t, ratio, 2.0, "step %d", i)
	}
}

func TestAuto_Deterministic(t *testing.T) {
	in := quickstartInput()
	in.Regions = append(in.Regions, grid.Region{
		Min:   models.Vec3{0.2, -1, -1},
		Max:   models.Vec3{1.3, 1, 1},
		Index: 2.5,
	})
	a, err := grid.AutoSpec(12).Make(in)
	require.NoError(t, err)
	b, err := grid.AutoSpec(12).Make(in)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	for _, ax := range models.Axes {
		assert.Equal(t, a.Boundaries(ax), b.Boundaries(ax))
	}
}

func TestAuto_SymmetryMirrors(t *testing.T) {
	in := quickstartInput()
	in.Symmetry = [3]int{0, 1, -1}
	in.Boundaries = models.AllSides(models.Periodic())
	g, err := grid.AutoSpec(10).Make(in)
	require.NoError(t, err)

	for _, a := range []models.Axis{models.Y, models.Z} {
		n := g.NumCells()[a]
		assert.Equal(t, 0, n%2, "axis %s has odd cell count", a)
		b := g.Boundaries(a)
		for i := range b {
			assert.InDelta(t, -b[i], b[len(b)-1-i], 1e-12)
		}
	}
}

func TestAuto_PMLExtendsWithEdgeStep(t *testing.T) {
	in := quickstartInput()
	in.Boundaries = models.BoundarySpec{X: models.PML(8), Y: models.Periodic(), Z: models.PEC()}
	g, err := grid.AutoSpec(10).Make(in)
	require.NoError(t, err)

	b := g.Boundaries(models.X)
	lo, hi := g.Extent(models.X)
	assert.Less(t, lo, -2.0)
	assert.Greater(t, hi, 2.0)
	assert.InDelta(t, b[1]-b[0], b[9]-b[8], 1e-12)

	ylo, yhi := g.Extent(models.Y)
	assert.Equal(t, -1.5, ylo)
	assert.Equal(t, 1.5, yhi)
}

func TestAuto_NeedsWavelength(t *testing.T) {
	in := quickstartInput()
	in.Wavelength = 0
	_, err := grid.AutoSpec(10).Make(in)
	require.ErrorIs(t, err, grid.ErrNoWavelength)

	spec := grid.AutoSpec(10)
	spec.Wavelength = 1
	_, err = spec.Make(in)
	require.NoError(t, err)
}

func TestUniform(t *testing.T) {
	in := quickstartInput()
	in.Boundaries = models.AllSides(models.Periodic())
	g, err := grid.UniformSpec(0.1).Make(in)
	require.NoError(t, err)
	assert.Equal(t, [3]int{40, 30, 30}, g.NumCells())
	assert.Equal(t, int64(36000), g.TotalCells())

	in.Symmetry = [3]int{1, 0, 0}
	g, err = grid.UniformSpec(0.3).Make(in)
	require.NoError(t, err)
	assert.Equal(t, 14, g.NumCells()[0], "ceil(4/0.3)=14 is already even")
	assert.Equal(t, 10, g.NumCells()[1])
}

func TestCustom(t *testing.T) {
	in := quickstartInput()
	in.Boundaries = models.AllSides(models.Periodic())
	spec := grid.UniformSpec(0.5)
	spec.X = grid.Custom([]float64{-3, -2, -1, 0, 1, 2, 3})
	g, err := spec.Make(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{-2, -1, 0, 1, 2}, g.Boundaries(models.X))

	spec.X = grid.Custom([]float64{-1, 0, 1})
	_, err = spec.Make(in)
	require.ErrorIs(t, err, grid.ErrInvalidSpec)
}

func TestMake_Ceiling(t *testing.T) {
	in := quickstartInput()
	spec := grid.AutoSpec(10)
	spec.MaxCells = 1000

	_, err := spec.Make(in)
	require.Error(t, err)
	var gre *grid.GridResolutionError
	require.True(t, errors.As(err, &gre))
	assert.True(t, errors.Is(err, grid.ErrGridResolution))
	assert.True(t, gre.Estimated)
	assert.Equal(t, int64(1000), gre.Limit)
	assert.Greater(t, gre.Cells, int64(1000))

	// a runaway request is rejected without building anything
	in.Wavelength = 1e-9
	_, err = grid.AutoSpec(10).Make(in)
	require.ErrorIs(t, err, grid.ErrGridResolution)
}

func TestNew_Validation(t *testing.T) {
	_, err := grid.New([]float64{0, 1}, []float64{0, 1}, []float64{0, 0})
	require.ErrorIs(t, err, grid.ErrInvalidBoundaries)
	_, err = grid.New([]float64{0}, []float64{0, 1}, []float64{0, 1})
	require.ErrorIs(t, err, grid.ErrInvalidBoundaries)

	g, err := grid.New([]float64{0, 1, 3}, []float64{0, 1}, []float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, g.Steps(models.X))
	assert.Equal(t, []float64{0.5, 2}, g.Centers(models.X))
	assert.Equal(t, 1.0, g.MinStep(models.X))
	assert.Equal(t, 2.0, g.MaxStep(models.X))
}
