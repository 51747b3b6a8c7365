package frontend

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/PeterCalifano/Kimera-VIO-PeterC-dev/calib"
)

// StereoMatchingParams contains the acceptance range for triangulated depths
// and the gate for emitting stereo vs. monocular-only measurements.
type StereoMatchingParams struct {
	MinPointDist          float64 `json:"min_point_dist_m"`
	MaxPointDist          float64 `json:"max_point_dist_m"`
	UseStereoMeasurements bool    `json:"use_stereo_measurements"`
}

// NewStereoMatchingParams returns stereo matching parameters with the default
// depth acceptance range.
func NewStereoMatchingParams() *StereoMatchingParams {
	return &StereoMatchingParams{
		MinPointDist:          0.1,
		MaxPointDist:          15.0,
		UseStereoMeasurements: true,
	}
}

// CheckValid checks if the fields for StereoMatchingParams have valid inputs.
func (params *StereoMatchingParams) CheckValid() error {
	if params == nil {
		return errors.New("stereo matching parameters are nil")
	}
	if params.MinPointDist <= 0 {
		return errors.Errorf("min point distance must be positive, got %v", params.MinPointDist)
	}
	if params.MaxPointDist <= params.MinPointDist {
		return errors.Errorf("max point distance %v must exceed min point distance %v",
			params.MaxPointDist, params.MinPointDist)
	}
	return nil
}

// LoadStereoMatchingParams loads stereo matching parameters from a json file.
// Fields missing from the file keep their defaults.
func LoadStereoMatchingParams(path string) (*StereoMatchingParams, error) {
	params := NewStereoMatchingParams()
	//nolint:gosec
	configFile, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening stereo matching config")
	}
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(params); err != nil {
		return nil, errors.Wrap(err, "error parsing stereo matching config")
	}
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	return params, nil
}

// DepthsFromRectifiedMatches converts rectified left/right keypoint pairs into
// depths via disparity, depth = fx * baseline / disparity. Right statuses are
// updated in place: correspondences with nonpositive disparity or an
// out-of-range depth become StatusNoDepth with depth 0, and a non-valid left
// status is propagated onto the right side since a right depth can never be
// valid without a valid left correspondence. The returned slice has one depth
// per input index; 0 is the no-depth sentinel.
func DepthsFromRectifiedMatches(left, right StatusKeypoints, fx, baseline float64,
	params *StereoMatchingParams,
) ([]float64, error) {
	if len(left) != len(right) {
		return nil, errors.Errorf("rectified keypoint size mismatch: left %d, right %d", len(left), len(right))
	}
	fxB := fx * baseline

	depths := make([]float64, 0, len(left))
	// disparity = left_px.x - right_px.x, so a valid right match lies left of
	// the left keypoint.
	for i := range left {
		if left[i].Status == StatusValid && right[i].Status == StatusValid {
			disparity := left[i].Pixel.X - right[i].Pixel.X
			// Zero disparity would put the point at infinity; reject it with
			// the wrong-side matches.
			if disparity > 0 {
				depth := fxB / disparity
				if depth < params.MinPointDist || depth > params.MaxPointDist {
					right[i].Status = StatusNoDepth
					depths = append(depths, 0.0)
				} else {
					depths = append(depths, depth)
				}
			} else {
				// Right match was wrong.
				right[i].Status = StatusNoDepth
				depths = append(depths, 0.0)
			}
		} else {
			if left[i].Status != StatusValid {
				// We cannot have a valid right without a valid left keypoint.
				right[i].Status = left[i].Status
			}
			depths = append(depths, 0.0)
		}
	}
	return depths, nil
}

// EstimateDepths runs disparity-to-depth conversion over the frame's rectified
// keypoints, writes the updated right statuses back, and back-projects every
// accepted depth to a 3D point in the left camera frame. Rows without a usable
// depth get the zero vector, keeping the nonpositive-z sentinel.
func (sf *StereoFrame) EstimateDepths(rig *calib.StereoCameraParameters,
	params *StereoMatchingParams,
) ([]float64, error) {
	if !sf.isRectified {
		return nil, errors.Wrapf(ErrNotRectified, "stereo frame %d (t=%d)", sf.ID, sf.Timestamp)
	}
	if err := rig.CheckValid(); err != nil {
		return nil, errors.Wrapf(err, "stereo frame %d", sf.ID)
	}
	if err := params.CheckValid(); err != nil {
		return nil, errors.Wrapf(err, "stereo frame %d", sf.ID)
	}
	left := sf.LeftRectified()
	right := sf.RightRectified()
	depths, err := DepthsFromRectifiedMatches(left, right, rig.Left.Fx, rig.Baseline, params)
	if err != nil {
		return nil, errors.Wrapf(err, "stereo frame %d (t=%d)", sf.ID, sf.Timestamp)
	}
	for i := range sf.Keypoints {
		sf.Keypoints[i].RightRect.Status = right[i].Status
		if right[i].Status == StatusValid && depths[i] > 0 {
			px := left[i].Pixel
			x, y, z := rig.Left.PixelToPoint(px.X, px.Y, depths[i])
			sf.Keypoints[i].Point3 = r3.Vector{X: x, Y: y, Z: z}
		} else {
			sf.Keypoints[i].Point3 = r3.Vector{}
		}
	}
	return depths, nil
}
