package calib

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// CameraParameters describes one camera of the rig: its pinhole intrinsics and
// its pose with respect to the body frame.
type CameraParameters struct {
	PinholeCameraIntrinsics
	BodyPoseCam *CamExtrinsics `json:"body_pose_cam,omitempty"`
}

// CheckValid checks if the fields for CameraParameters have valid inputs.
func (params *CameraParameters) CheckValid() error {
	if params == nil {
		return errors.New("camera parameters are nil")
	}
	return params.PinholeCameraIntrinsics.CheckValid()
}

// StereoCameraParameters describes a rectified stereo rig: both cameras plus
// the baseline between them in meters.
type StereoCameraParameters struct {
	Left     *CameraParameters `json:"left_camera"`
	Right    *CameraParameters `json:"right_camera"`
	Baseline float64           `json:"baseline_m"`
}

// CheckValid checks if the fields for StereoCameraParameters have valid inputs.
func (params *StereoCameraParameters) CheckValid() error {
	if params == nil {
		return errors.New("stereo camera parameters are nil")
	}
	if err := params.Left.CheckValid(); err != nil {
		return errors.Wrap(err, "left camera")
	}
	if err := params.Right.CheckValid(); err != nil {
		return errors.Wrap(err, "right camera")
	}
	if params.Baseline <= 0 {
		return errors.Errorf("baseline must be positive, got %v", params.Baseline)
	}
	return nil
}

// NewStereoCameraParametersFromJSONFile takes in a file path to a JSON and turns
// it into StereoCameraParameters.
func NewStereoCameraParametersFromJSONFile(jsonPath string) (*StereoCameraParameters, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening stereo calibration file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	params := &StereoCameraParameters{}
	if err := json.NewDecoder(jsonFile).Decode(params); err != nil {
		return nil, errors.Wrap(err, "error parsing stereo calibration")
	}
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	return params, nil
}
