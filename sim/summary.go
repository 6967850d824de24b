package sim

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/planarik/utils"
)

// JointSummary describes how one joint moved over a simulation. Angles are degrees.
type JointSummary struct {
	Joint int
	Min   float64
	Max   float64
	Mean  float64
	// Travel is the summed wrapped angle change between consecutive frames.
	Travel float64
}

// SummarizeJoints reduces a recorded angle history to one summary per joint.
func SummarizeJoints(history [][]float64) ([]JointSummary, error) {
	if len(history) == 0 || len(history[0]) == 0 {
		return nil, errors.New("no joint angles to summarize")
	}
	joints := len(history[0])
	series := make([]stats.Float64Data, joints)
	steps := make([]stats.Float64Data, joints)
	for i, frame := range history {
		if len(frame) != joints {
			return nil, errors.Errorf("frame %d has %d angles, want %d", i, len(frame), joints)
		}
		for j, a := range frame {
			series[j] = append(series[j], a)
			if i > 0 {
				steps[j] = append(steps[j], utils.AngleDiffDeg(a, history[i-1][j]))
			}
		}
	}

	out := make([]JointSummary, joints)
	for j, data := range series {
		lo, err := data.Min()
		if err != nil {
			return nil, err
		}
		hi, err := data.Max()
		if err != nil {
			return nil, err
		}
		mean, err := data.Mean()
		if err != nil {
			return nil, err
		}
		out[j] = JointSummary{Joint: j + 1, Min: lo, Max: hi, Mean: mean}
		// A single frame has no steps.
		if len(steps[j]) > 0 {
			if out[j].Travel, err = steps[j].Sum(); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
