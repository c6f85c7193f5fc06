package regress

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Options controls the IRLS iteration.
type Options struct {
	MaxIterations int
	Tolerance     float64 // relative deviance change for convergence
}

// DefaultOptions matches the config defaults.
var DefaultOptions = Options{MaxIterations: 50, Tolerance: 1e-8}

// Fit is the result of one fixed-effects Poisson regression.
type Fit struct {
	Model      string
	Response   string
	Terms      []string
	Coef       []float64
	SE         []float64
	NObs       int
	Iterations int
	Deviance   float64
}

// FitPoisson fits a Poisson-family regression with log link by iteratively
// reweighted least squares. Non-convergence within the iteration budget and
// a singular weighted design are both errors; a failed fit never returns a
// partial result.
func FitPoisson(d *Design, opts Options) (*Fit, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions.MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions.Tolerance
	}

	n, p := d.X.Dims()
	if n != len(d.Y) {
		return nil, fmt.Errorf("model %s: design has %d rows but %d responses", d.Model, n, len(d.Y))
	}
	for _, y := range d.Y {
		if y < 0 {
			return nil, fmt.Errorf("model %s: negative response %v", d.Model, y)
		}
	}

	// Working state: eta is the linear predictor, mu = exp(eta).
	eta := make([]float64, n)
	mu := make([]float64, n)
	for i, y := range d.Y {
		// Standard GLM start: shrink the raw response toward a positive mean.
		mu[i] = y + 0.5
		eta[i] = math.Log(mu[i])
	}

	beta := mat.NewVecDense(p, nil)
	wx := mat.NewDense(n, p, nil)
	wz := mat.NewVecDense(n, nil)

	dev := deviance(d.Y, mu)
	var chol mat.Cholesky

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		// Weighted working response: z = eta + (y-mu)/mu, weight w = mu.
		for i := 0; i < n; i++ {
			w := mu[i]
			if w < 1e-10 {
				w = 1e-10
			}
			sw := math.Sqrt(w)
			z := eta[i] + (d.Y[i]-mu[i])/w
			for j := 0; j < p; j++ {
				wx.Set(i, j, sw*d.X.At(i, j))
			}
			wz.SetVec(i, sw*z)
		}

		// Solve (X'WX) beta = X'Wz via Cholesky of the normal equations.
		var xtwx mat.Dense
		xtwx.Mul(wx.T(), wx)
		sym := mat.NewSymDense(p, nil)
		for i := 0; i < p; i++ {
			for j := i; j < p; j++ {
				sym.SetSym(i, j, xtwx.At(i, j))
			}
		}
		if ok := chol.Factorize(sym); !ok {
			return nil, fmt.Errorf("model %s: singular weighted design at iteration %d", d.Model, iter)
		}

		var rhs mat.VecDense
		rhs.MulVec(wx.T(), wz)
		if err := chol.SolveVecTo(beta, &rhs); err != nil {
			return nil, fmt.Errorf("model %s: solve normal equations: %w", d.Model, err)
		}

		// Update the linear predictor and mean, guarding exp overflow.
		var etaVec mat.VecDense
		etaVec.MulVec(d.X, beta)
		for i := 0; i < n; i++ {
			e := etaVec.AtVec(i)
			if e > 30 {
				e = 30
			}
			eta[i] = e
			mu[i] = math.Exp(e)
		}

		prev := dev
		dev = deviance(d.Y, mu)
		if math.Abs(dev-prev)/(math.Abs(dev)+0.1) < opts.Tolerance {
			se, err := standardErrors(&chol, p)
			if err != nil {
				return nil, fmt.Errorf("model %s: %w", d.Model, err)
			}
			coef := make([]float64, p)
			copy(coef, beta.RawVector().Data)
			return &Fit{
				Model:      d.Model,
				Response:   d.Response,
				Terms:      d.Terms,
				Coef:       coef,
				SE:         se,
				NObs:       n,
				Iterations: iter,
				Deviance:   dev,
			}, nil
		}
	}

	return nil, fmt.Errorf("model %s: IRLS did not converge in %d iterations", d.Model, opts.MaxIterations)
}

// deviance is the Poisson deviance 2*sum(y*log(y/mu) - (y-mu)), with the
// y=0 limit contributing 2*mu.
func deviance(y, mu []float64) float64 {
	var dev float64
	for i := range y {
		if y[i] > 0 {
			dev += y[i]*math.Log(y[i]/mu[i]) - (y[i] - mu[i])
		} else {
			dev += mu[i]
		}
	}
	return 2 * dev
}

// standardErrors extracts sqrt of the diagonal of (X'WX)^-1.
func standardErrors(chol *mat.Cholesky, p int) ([]float64, error) {
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("invert information matrix: %w", err)
	}

	se := make([]float64, p)
	for j := 0; j < p; j++ {
		v := inv.At(j, j)
		if v < 0 {
			return nil, errors.New("negative variance on information matrix diagonal")
		}
		se[j] = math.Sqrt(v)
	}
	return se, nil
}

// ZValues returns coefficient z statistics (coef / SE).
func (f *Fit) ZValues() []float64 {
	z := make([]float64, len(f.Coef))
	for i := range f.Coef {
		z[i] = f.Coef[i] / f.SE[i]
	}
	return z
}

// PValues returns two-sided normal p-values for each coefficient.
func (f *Fit) PValues() []float64 {
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	ps := make([]float64, len(f.Coef))
	for i, z := range f.ZValues() {
		ps[i] = 2 * norm.CDF(-math.Abs(z))
	}
	return ps
}
