package frontend

import (
	"math"
	"sync/atomic"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// StereoPoint is a per-landmark stereo observation: the left rectified pixel
// (UL, V) plus the right rectified x coordinate when a valid right
// correspondence exists. The right coordinate is tagged rather than stored as
// NaN so missing values cannot leak into downstream arithmetic.
type StereoPoint struct {
	UL float64
	V  float64

	uR       float64
	hasRight bool
}

// NewMonoPoint returns an observation without right pixel information.
func NewMonoPoint(uL, v float64) StereoPoint {
	return StereoPoint{UL: uL, V: v}
}

// NewStereoPoint returns an observation with both left and right pixel information.
func NewStereoPoint(uL, uR, v float64) StereoPoint {
	return StereoPoint{UL: uL, V: v, uR: uR, hasRight: true}
}

// RightU returns the right rectified x coordinate and whether it is present.
func (p StereoPoint) RightU() (float64, bool) {
	return p.uR, p.hasRight
}

// RightUOrNaN returns the right rectified x coordinate, or NaN when missing,
// for consumers that expect the NaN sentinel convention.
func (p StereoPoint) RightUOrNaN() float64 {
	if !p.hasRight {
		return math.NaN()
	}
	return p.uR
}

// StereoMeasurement associates one landmark with its observation in a frame.
type StereoMeasurement struct {
	Landmark LandmarkID
	Point    StereoPoint
}

// droppedStereoWarnEveryN rate-limits the dropped-stereo warning.
const droppedStereoWarnEveryN = 10

var droppedStereoCount atomic.Uint64

// SmartStereoMeasurements packages the frame's per-landmark observations for a
// downstream estimator. The frame must be rectified and is fully validated via
// CheckStereoFrame before assembly. Keypoints without a landmark association
// are filtered; the output order follows the keypoint order. The right
// coordinate is emitted only when useStereoMeasurements is set and the right
// correspondence is valid, otherwise the observation is monocular-only and a
// rate-limited warning is logged.
func (sf *StereoFrame) SmartStereoMeasurements(useStereoMeasurements bool,
	logger golog.Logger,
) ([]StereoMeasurement, error) {
	if !sf.isRectified {
		return nil, errors.Wrapf(ErrNotRectified, "stereo frame %d (t=%d)", sf.ID, sf.Timestamp)
	}
	// Full per-index validation. This may be expensive on large frames.
	if err := sf.CheckStereoFrame(); err != nil {
		return nil, err
	}

	measurements := make([]StereoMeasurement, 0, len(sf.Keypoints))
	for _, kp := range sf.Keypoints {
		if kp.Landmark == LandmarkUnassociated {
			continue
		}
		uL := kp.LeftRect.Pixel.X
		v := kp.LeftRect.Pixel.Y
		point := NewMonoPoint(uL, v)
		if useStereoMeasurements && kp.RightRect.Status == StatusValid {
			point = NewStereoPoint(uL, kp.RightRect.Pixel.X, v)
		} else if n := droppedStereoCount.Add(1); n%droppedStereoWarnEveryN == 1 {
			logger.Warnf("dropping stereo information for landmark %d: no right coordinate emitted "+
				"(useStereoMeasurements=%t, status=%s)", kp.Landmark, useStereoMeasurements, kp.RightRect.Status)
		}
		measurements = append(measurements, StereoMeasurement{Landmark: kp.Landmark, Point: point})
	}
	return measurements, nil
}
