package frontend

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// KeypointStatus classifies whether the right-image correspondence for a left
// keypoint produced a usable depth, and if not, why. The set is closed: any
// other value is an internal consistency failure.
type KeypointStatus int

const (
	// StatusValid marks a correspondence with a usable depth.
	StatusValid KeypointStatus = iota
	// StatusNoLeftRect marks keypoints whose left rectified coordinate is unavailable.
	StatusNoLeftRect
	// StatusNoRightRect marks keypoints whose right rectified coordinate is unavailable.
	StatusNoRightRect
	// StatusNoDepth marks correspondences whose disparity produced no usable depth.
	StatusNoDepth
	// StatusFailedArun marks correspondences rejected by the 3D-3D alignment check.
	StatusFailedArun
)

func (s KeypointStatus) String() string {
	switch s {
	case StatusValid:
		return "VALID"
	case StatusNoLeftRect:
		return "NO_LEFT_RECT"
	case StatusNoRightRect:
		return "NO_RIGHT_RECT"
	case StatusNoDepth:
		return "NO_DEPTH"
	case StatusFailedArun:
		return "FAILED_ARUN"
	}
	return fmt.Sprintf("KeypointStatus(%d)", int(s))
}

// StatusKeypoint pairs a rectified pixel coordinate with its validity status.
type StatusKeypoint struct {
	Status KeypointStatus
	Pixel  r2.Point
}

// StatusKeypoints is a set of status keypoints for one side of a stereo pair.
type StatusKeypoints []StatusKeypoint

// StatusCounts tallies right keypoints per status. Diagnostic only, it never
// gates control flow.
type StatusCounts struct {
	Valid       int
	NoLeftRect  int
	NoRightRect int
	NoDepth     int
	FailedArun  int
}

// Total returns the number of tallied keypoints.
func (c StatusCounts) Total() int {
	return c.Valid + c.NoLeftRect + c.NoRightRect + c.NoDepth + c.FailedArun
}

func (c StatusCounts) String() string {
	return fmt.Sprintf("nrValid: %d, nrNoLeftRect: %d, nrNoRightRect: %d, nrNoDepth: %d, nrFailedArun: %d",
		c.Valid, c.NoLeftRect, c.NoRightRect, c.NoDepth, c.FailedArun)
}

// CountRightKeypointStatuses tallies the given keypoints per status value. A
// status outside the closed tag set is an internal consistency failure and is
// returned as an error.
func CountRightKeypointStatuses(kps StatusKeypoints) (StatusCounts, error) {
	var counts StatusCounts
	for i, kp := range kps {
		switch kp.Status {
		case StatusValid:
			counts.Valid++
		case StatusNoLeftRect:
			counts.NoLeftRect++
		case StatusNoRightRect:
			counts.NoRightRect++
		case StatusNoDepth:
			counts.NoDepth++
		case StatusFailedArun:
			counts.FailedArun++
		default:
			return StatusCounts{}, errors.Errorf("unknown keypoint status %d at index %d", int(kp.Status), i)
		}
	}
	return counts, nil
}
