package sim

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// AnglePlot plots every joint angle, in degrees, against time for a history recorded at fps.
func AnglePlot(history [][]float64, fps int) (*plot.Plot, error) {
	if len(history) == 0 || len(history[0]) == 0 {
		return nil, errors.New("no joint angles to plot")
	}
	if fps <= 0 {
		return nil, errors.Errorf("fps must be positive, got %d", fps)
	}

	p := plot.New()
	p.Title.Text = "Joint angles"
	p.X.Label.Text = "t (s)"
	p.Y.Label.Text = "angle (deg)"

	joints := len(history[0])
	lines := make([]interface{}, 0, 2*joints)
	for j := 0; j < joints; j++ {
		pts := make(plotter.XYs, 0, len(history))
		for i, frame := range history {
			if len(frame) != joints {
				return nil, errors.Errorf("frame %d has %d angles, want %d", i, len(frame), joints)
			}
			pts = append(pts, plotter.XY{X: float64(i) / float64(fps), Y: frame[j]})
		}
		lines = append(lines, fmt.Sprintf("joint %d", j+1), pts)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveAnglePlot writes AnglePlot to path. The format follows the extension.
func SaveAnglePlot(history [][]float64, fps int, path string) error {
	p, err := AnglePlot(history, fps)
	if err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
