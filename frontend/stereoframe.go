package frontend

import (
	"fmt"
	"math"
	"strings"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrNotRectified is returned when an operation that needs rectified
// coordinates runs before the rectification output was set on the frame.
var ErrNotRectified = errors.New("stereo pair is not rectified")

// maxRectifiedYDisparity bounds how far apart the left and right rectified y
// coordinates of a valid correspondence may be, in pixels.
const maxRectifiedYDisparity = 3.0

// StereoKeypoint is the per-keypoint stereo state: the landmark association,
// the rectified coordinate and status of each side, and the triangulated 3D
// point. Point3.Z > 0 is the validity signal for the depth; rows without a
// usable depth keep a nonpositive z.
type StereoKeypoint struct {
	Landmark  LandmarkID
	LeftRect  StatusKeypoint
	RightRect StatusKeypoint
	Point3    r3.Vector
}

// StereoFrame is a pair of time-synchronized frames from a stereo rig,
// together with the per-keypoint stereo state derived from them. One
// StereoFrame is owned by one pipeline stage at a time; it is not safe for
// concurrent mutation.
type StereoFrame struct {
	ID        FrameID
	Timestamp int64
	Left      *Frame
	Right     *Frame

	// Keypoints holds one row per matched keypoint, index-aligned with the
	// mono frames' keypoint containers.
	Keypoints []StereoKeypoint

	isKeyframe  bool
	isRectified bool
}

// NewStereoFrame validates that both mono frames share the stereo pair's
// identity and capture time and wraps them in a StereoFrame.
func NewStereoFrame(id FrameID, timestamp int64, left, right *Frame) (*StereoFrame, error) {
	if left == nil || right == nil {
		return nil, errors.New("stereo frame needs both a left and a right frame")
	}
	if left.ID != id || right.ID != id {
		return nil, errors.Errorf("stereo frame %d: frame ids do not match (left %d, right %d)", id, left.ID, right.ID)
	}
	if left.Timestamp != timestamp || right.Timestamp != timestamp {
		return nil, errors.Errorf("stereo frame %d: timestamps do not match (%d vs left %d, right %d)",
			id, timestamp, left.Timestamp, right.Timestamp)
	}
	return &StereoFrame{ID: id, Timestamp: timestamp, Left: left, Right: right}, nil
}

// IsRectified reports whether the rectification output was set on the frame.
func (sf *StereoFrame) IsRectified() bool {
	return sf.isRectified
}

// IsKeyframe reports whether the frame was selected as a keyframe.
func (sf *StereoFrame) IsKeyframe() bool {
	return sf.isKeyframe
}

// SetIsKeyframe sets the keyframe flag on the stereo frame and on both mono
// frames. The three flags must never diverge.
func (sf *StereoFrame) SetIsKeyframe(isKf bool) {
	sf.isKeyframe = isKf
	sf.Left.IsKeyframe = isKf
	sf.Right.IsKeyframe = isKf
}

// SetRectifiedKeypoints ingests the rectification output for both sides,
// builds the per-keypoint rows and marks the frame rectified. The landmark
// association is pulled from the left frame; 3D points start zeroed (no usable
// depth) until depth estimation runs.
func (sf *StereoFrame) SetRectifiedKeypoints(left, right StatusKeypoints) error {
	n := sf.Left.NumKeypoints()
	if len(left) != n || len(right) != n {
		return errors.Errorf("stereo frame %d: rectified keypoint sizes (left %d, right %d) disagree with detected keypoints (%d)",
			sf.ID, len(left), len(right), n)
	}
	if len(sf.Left.Landmarks) != n {
		return errors.Errorf("stereo frame %d: left landmarks size %d disagrees with detected keypoints (%d)",
			sf.ID, len(sf.Left.Landmarks), n)
	}
	rows := make([]StereoKeypoint, n)
	for i := range rows {
		rows[i] = StereoKeypoint{
			Landmark:  sf.Left.Landmarks[i],
			LeftRect:  left[i],
			RightRect: right[i],
		}
	}
	sf.Keypoints = rows
	sf.isRectified = true
	return nil
}

// LeftRectified returns a copy of the left rectified keypoint column.
func (sf *StereoFrame) LeftRectified() StatusKeypoints {
	out := make(StatusKeypoints, len(sf.Keypoints))
	for i, kp := range sf.Keypoints {
		out[i] = kp.LeftRect
	}
	return out
}

// RightRectified returns a copy of the right rectified keypoint column.
func (sf *StereoFrame) RightRectified() StatusKeypoints {
	out := make(StatusKeypoints, len(sf.Keypoints))
	for i, kp := range sf.Keypoints {
		out[i] = kp.RightRect
	}
	return out
}

// Points3 returns a copy of the triangulated 3D point column.
func (sf *StereoFrame) Points3() []r3.Vector {
	out := make([]r3.Vector, len(sf.Keypoints))
	for i, kp := range sf.Keypoints {
		out[i] = kp.Point3
	}
	return out
}

// Points3InBodyFrame returns the triangulated points expressed in the body
// frame via the left camera extrinsics. Rows without a usable depth stay at
// the zero vector.
func (sf *StereoFrame) Points3InBodyFrame() ([]r3.Vector, error) {
	if sf.Left.CamParams == nil || sf.Left.CamParams.BodyPoseCam == nil {
		return nil, errors.Errorf("stereo frame %d: left camera has no body pose", sf.ID)
	}
	pose := sf.Left.CamParams.BodyPoseCam
	out := make([]r3.Vector, len(sf.Keypoints))
	for i, kp := range sf.Keypoints {
		if kp.RightRect.Status == StatusValid {
			out[i] = pose.TransformPoint(kp.Point3)
		}
	}
	return out, nil
}

// CheckStereoFrame validates the cross-container alignment and the geometric
// invariants of the frame. A violation indicates a programming error in an
// upstream stage; callers should stop processing the frame on error. The
// traversal is read-only.
func (sf *StereoFrame) CheckStereoFrame() error {
	n := sf.Left.NumKeypoints()
	if len(sf.Left.Scores) != n {
		return sf.checkError("left scores size %d != keypoints size %d", len(sf.Left.Scores), n)
	}
	if len(sf.Left.Landmarks) != n {
		return sf.checkError("left landmarks size %d != keypoints size %d", len(sf.Left.Landmarks), n)
	}
	if sf.Right.NumKeypoints() != n {
		return sf.checkError("right keypoints size %d != left keypoints size %d", sf.Right.NumKeypoints(), n)
	}
	if len(sf.Keypoints) != n {
		return sf.checkError("stereo keypoints size %d != left keypoints size %d", len(sf.Keypoints), n)
	}
	for i, kp := range sf.Keypoints {
		if kp.RightRect.Status == StatusValid {
			if yDiff := math.Abs(kp.RightRect.Pixel.Y - kp.LeftRect.Pixel.Y); yDiff > maxRectifiedYDisparity {
				return sf.checkError("rectified keypoints at index %d have different y: %.3f vs %.3f",
					i, kp.RightRect.Pixel.Y, kp.LeftRect.Pixel.Y)
			}
			rightRaw := sf.Right.Keypoints[i]
			if math.Abs(rightRaw.X)+math.Abs(rightRaw.Y) == 0 {
				return sf.checkError("right keypoint at index %d is zero", i)
			}
			if kp.Point3.Z <= 0 {
				return sf.checkError("depth sign mismatch at index %d for status %s: z = %.3f",
					i, kp.RightRect.Status, kp.Point3.Z)
			}
		} else if kp.Point3.Z > 0 {
			return sf.checkError("depth sign mismatch at index %d for status %s: z = %.3f",
				i, kp.RightRect.Status, kp.Point3.Z)
		}
	}
	return nil
}

func (sf *StereoFrame) checkError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return errors.Errorf("stereo frame %d (t=%d): %s", sf.ID, sf.Timestamp, msg)
}

// LogKeypointStats logs the per-status tally of the right rectified keypoints.
func (sf *StereoFrame) LogKeypointStats(logger golog.Logger) error {
	counts, err := CountRightKeypointStatuses(sf.RightRectified())
	if err != nil {
		return errors.Wrapf(err, "stereo frame %d", sf.ID)
	}
	logger.Infof("stereo frame %d: %d right keypoints, of which %s", sf.ID, counts.Total(), counts)
	return nil
}

// String dumps the record identity, container sizes and, when available, the
// body-to-camera extrinsics of both sides.
func (sf *StereoFrame) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stereo frame %d (t=%d, keyframe=%t, rectified=%t)\n",
		sf.ID, sf.Timestamp, sf.isKeyframe, sf.isRectified)
	fmt.Fprintf(&b, "left keypoints: %d, right keypoints: %d, stereo keypoints: %d",
		sf.Left.NumKeypoints(), sf.Right.NumKeypoints(), len(sf.Keypoints))
	if sf.Left.CamParams != nil && sf.Left.CamParams.BodyPoseCam != nil {
		fmt.Fprintf(&b, "\nleft body_P_cam: %s", sf.Left.CamParams.BodyPoseCam)
	}
	if sf.Right.CamParams != nil && sf.Right.CamParams.BodyPoseCam != nil {
		fmt.Fprintf(&b, "\nright body_P_cam: %s", sf.Right.CamParams.BodyPoseCam)
	}
	return b.String()
}
