//go:build windows || no_cgo

package kinematics

const minimumTravelAvailable = false

func (MinimumTravelPolicy) search(p *problem, seed []float64, budget int) (localResult, error) {
	return localResult{}, NewInvalidConfigurationError("minimum travel redundancy policy requires a cgo build")
}
