// Package frontend implements the stereo stage of a visual-inertial pipeline:
// it turns matched left/right keypoints of a rectified stereo pair into
// validated depths and per-landmark stereo measurements, tracking for every
// keypoint why its depth is or is not usable.
package frontend

import (
	"github.com/golang/geo/r2"

	"github.com/PeterCalifano/Kimera-VIO-PeterC-dev/calib"
)

// FrameID identifies a captured frame.
type FrameID uint64

// LandmarkID identifies a persistent 3D scene point tracked across frames.
type LandmarkID int64

// LandmarkUnassociated marks a keypoint not yet associated with a landmark.
// It is filtered from measurement output, not an invariant violation.
const LandmarkUnassociated LandmarkID = -1

// Frame is a single-camera frame with its detected keypoints. Keypoints,
// Scores and Landmarks are index-aligned: they are the detector and tracker
// output for the same feature.
type Frame struct {
	ID         FrameID
	Timestamp  int64 // nanoseconds
	CamParams  *calib.CameraParameters
	Keypoints  []r2.Point
	Scores     []float64
	Landmarks  []LandmarkID
	IsKeyframe bool
}

// NumKeypoints returns the number of detected keypoints.
func (fr *Frame) NumKeypoints() int {
	return len(fr.Keypoints)
}
