package crossfade

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var allCurves = []Curve{CurveLinear, CurveExponential, CurveSCurve, CurveLogarithmic, CurveConstantPower}

func TestEndpointsAreUnityGain(t *testing.T) {
	for _, c := range allCurves {
		start := Evaluate(c, 0)
		require.InDelta(t, 1.0, start.Out, 1e-9, "curve %s out@0", c)
		require.InDelta(t, 0.0, start.In, 1e-9, "curve %s in@0", c)

		end := Evaluate(c, 1)
		require.InDelta(t, 0.0, end.Out, 1e-9, "curve %s out@1", c)
		require.InDelta(t, 1.0, end.In, 1e-9, "curve %s in@1", c)
	}
}

func TestConstantPowerIdentity(t *testing.T) {
	for p := 0.0; p <= 1.0; p += 0.05 {
		g := Evaluate(CurveConstantPower, p)
		sumSquares := g.Out*g.Out + g.In*g.In
		require.InDelta(t, 1.0, sumSquares, 1e-9)
	}
}

func TestEvaluateClampsProgress(t *testing.T) {
	below := Evaluate(CurveLinear, -0.5)
	require.Equal(t, Gains{Out: 1, In: 0}, below)

	above := Evaluate(CurveLinear, 1.5)
	require.Equal(t, Gains{Out: 0, In: 1}, above)
}

func TestLinearIsSymmetric(t *testing.T) {
	g := Evaluate(CurveLinear, 0.25)
	require.InDelta(t, 0.75, g.Out, 1e-9)
	require.InDelta(t, 0.25, g.In, 1e-9)
}

func TestSCurveIsMonotonic(t *testing.T) {
	prev := -1.0
	for p := 0.0; p <= 1.0; p += 0.1 {
		g := Evaluate(CurveSCurve, p)
		require.GreaterOrEqual(t, g.In, prev)
		prev = g.In
	}
}

func TestLogarithmicMatchesKnownFormula(t *testing.T) {
	g := Evaluate(CurveLogarithmic, 0.5)
	expectedOut := math.Log10((1-0.5)*9 + 1)
	require.InDelta(t, expectedOut, g.Out, 1e-9)
	require.InDelta(t, 1-expectedOut, g.In, 1e-9)
}

func TestLogarithmicIncomingIsOutgoingComplement(t *testing.T) {
	for p := 0.0; p <= 1.0; p += 0.05 {
		g := Evaluate(CurveLogarithmic, p)
		require.InDelta(t, 1.0, g.Out+g.In, 1e-9, "p=%v", p)
	}
}

func TestExponentialMatchesKnownFormula(t *testing.T) {
	g := Evaluate(CurveExponential, 0.5)
	require.InDelta(t, 0.25, g.Out, 1e-9)
	require.InDelta(t, 0.75, g.In, 1e-9)
}
