package report

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/couchcryptid/smoke-asthma-etl/internal/regress"
)

// WriteCoefficientPlots renders one coefficient panel per fit, stacked
// vertically into a single PNG. Within each panel terms are sorted by
// estimate magnitude and annotated with the numeric estimate.
func WriteCoefficientPlots(path string, fits []*regress.Fit) error {
	if len(fits) == 0 {
		return fmt.Errorf("no fits to plot")
	}

	panels := make([][]*plot.Plot, len(fits))
	for i, fit := range fits {
		p, err := coefficientPanel(fit)
		if err != nil {
			return fmt.Errorf("panel %s: %w", fit.Model, err)
		}
		panels[i] = []*plot.Plot{p}
	}

	img := vgimg.New(7*vg.Inch, vg.Length(len(fits))*3*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(fits),
		Cols: 1,
		PadY: vg.Millimeter * 3,
	}

	canvases := plot.Align(panels, tiles, dc)
	for i := range panels {
		panels[i][0].Draw(canvases[i][0])
	}

	return writePNGCanvas(path, img)
}

// coefficientPanel builds one horizontal dot plot of a fit's estimates.
func coefficientPanel(fit *regress.Fit) (*plot.Plot, error) {
	type coef struct {
		term string
		est  float64
	}
	coefs := make([]coef, len(fit.Terms))
	for i, t := range fit.Terms {
		coefs[i] = coef{term: t, est: fit.Coef[i]}
	}
	sort.Slice(coefs, func(i, j int) bool {
		return math.Abs(coefs[i].est) < math.Abs(coefs[j].est)
	})

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%s, n=%d)", fit.Model, fit.Response, fit.NObs)
	p.X.Label.Text = "estimate"

	pts := make(plotter.XYs, len(coefs))
	labels := make([]string, len(coefs))
	names := make([]string, len(coefs))
	for i, c := range coefs {
		pts[i] = plotter.XY{X: c.est, Y: float64(i)}
		labels[i] = fmt.Sprintf(" %.4f", c.est)
		names[i] = c.term
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Radius = vg.Points(3)

	annotations, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: labels})
	if err != nil {
		return nil, err
	}

	p.Add(plotter.NewGrid(), scatter, annotations)
	p.NominalY(names...)
	return p, nil
}

// WriteRateHistogram renders the raw rate distribution, a diagnostic for the
// right-skew the log1p transform addresses.
func WriteRateHistogram(path string, rates []float64) error {
	if len(rates) == 0 {
		return fmt.Errorf("no rate observations to plot")
	}

	p := plot.New()
	p.Title.Text = "Asthma rate distribution"
	p.X.Label.Text = "visits per 100,000"
	p.Y.Label.Text = "county-months"

	h, err := plotter.NewHist(plotter.Values(rates), 16)
	if err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	p.Add(h)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writePNGCanvas(path string, img *vgimg.Canvas) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	pngc := vgimg.PngCanvas{Canvas: img}
	if _, err := pngc.WriteTo(f); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
