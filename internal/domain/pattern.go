package domain

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// OverallGroup names the pattern fitted across every event.
const OverallGroup = "overall"

// FittedPattern is the quadratic a·t² + b·t + c fitted to an averaged curve.
type FittedPattern struct {
	Group        string          `json:"group"`
	Coefficients [3]float64      `json:"coefficients"`
	EventCount   int             `json:"event_count"`
	Average      NormalizedCurve `json:"average_curve"`
}

// Evaluate returns P*(t).
func (p FittedPattern) Evaluate(t float64) float64 {
	a, b, c := p.Coefficients[0], p.Coefficients[1], p.Coefficients[2]
	return (a*t+b)*t + c
}

// Equation renders the pattern as "P*(t) = a t^2 + b t + c" with four decimals.
func (p FittedPattern) Equation() string {
	return fmt.Sprintf("P*(t) = %.4f t^2 + %.4f t + %.4f", p.Coefficients[0], p.Coefficients[1], p.Coefficients[2])
}

// AverageCurves returns the point-wise mean of equally sized curves.
// It returns ErrEmptyCategory when there is nothing to average.
func AverageCurves(curves []NormalizedCurve) (NormalizedCurve, error) {
	if len(curves) == 0 {
		return nil, ErrEmptyCategory
	}

	n := len(curves[0])
	mean := make(NormalizedCurve, n)
	for i, c := range curves {
		if len(c) != n {
			return nil, fmt.Errorf("average curves: curve %d has %d points, want %d", i, len(c), n)
		}
		floats.Add(mean, c)
	}
	floats.Scale(1/float64(len(curves)), mean)
	return mean, nil
}

// FitQuadratic solves the least-squares problem for a·t² + b·t + c through
// QR decomposition of the Vandermonde matrix. Coefficients are returned
// highest degree first.
func FitQuadratic(t, y []float64) ([3]float64, error) {
	var coeffs [3]float64
	n := len(t)
	if n != len(y) {
		return coeffs, fmt.Errorf("fit quadratic: %d times and %d values", n, len(y))
	}
	if n < 3 {
		return coeffs, fmt.Errorf("fit quadratic: need at least 3 points, got %d", n)
	}

	x := mat.NewDense(n, 3, nil)
	for i, ti := range t {
		x.Set(i, 0, ti*ti)
		x.Set(i, 1, ti)
		x.Set(i, 2, 1)
	}

	var qr mat.QR
	qr.Factorize(x)

	solution := mat.NewVecDense(3, nil)
	if err := qr.SolveVecTo(solution, false, mat.NewVecDense(n, y)); err != nil {
		return coeffs, fmt.Errorf("fit quadratic: %w", err)
	}

	for i := range coeffs {
		coeffs[i] = solution.AtVec(i)
	}
	return coeffs, nil
}

// FitPattern averages the curves and fits a quadratic to the mean over the
// curves' own time grid.
func FitPattern(group string, curves []NormalizedCurve) (FittedPattern, error) {
	avg, err := AverageCurves(curves)
	if err != nil {
		return FittedPattern{}, err
	}

	coeffs, err := FitQuadratic(TimeGrid(len(avg)), avg)
	if err != nil {
		return FittedPattern{}, fmt.Errorf("%s pattern: %w", group, err)
	}

	return FittedPattern{
		Group:        group,
		Coefficients: coeffs,
		EventCount:   len(curves),
		Average:      avg,
	}, nil
}
