package calib

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

const testRigJSON = `{
	"left_camera": {
		"width_px": 752, "height_px": 480,
		"fx": 458.654, "fy": 457.296, "ppx": 367.215, "ppy": 248.375,
		"body_pose_cam": {
			"rotation_row_major": [1, 0, 0, 0, 1, 0, 0, 0, 1],
			"translation": [-0.0216, -0.0647, 0.0098]
		}
	},
	"right_camera": {
		"width_px": 752, "height_px": 480,
		"fx": 457.587, "fy": 456.134, "ppx": 379.999, "ppy": 255.238
	},
	"baseline_m": 0.11
}`

func TestStereoCameraParametersCheckValid(t *testing.T) {
	params := &StereoCameraParameters{
		Left:     &CameraParameters{PinholeCameraIntrinsics: *goodIntrinsics()},
		Right:    &CameraParameters{PinholeCameraIntrinsics: *goodIntrinsics()},
		Baseline: 0.11,
	}
	test.That(t, params.CheckValid(), test.ShouldBeNil)

	params.Baseline = 0
	err := params.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "baseline")

	params.Baseline = 0.11
	params.Right = nil
	err = params.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "right camera")
}

func TestNewStereoCameraParametersFromJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.json")
	test.That(t, os.WriteFile(path, []byte(testRigJSON), 0o600), test.ShouldBeNil)

	params, err := NewStereoCameraParametersFromJSONFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, params.Baseline, test.ShouldEqual, 0.11)
	test.That(t, params.Left.Fx, test.ShouldEqual, 458.654)
	test.That(t, params.Right.Ppx, test.ShouldEqual, 379.999)
	test.That(t, params.Left.BodyPoseCam, test.ShouldNotBeNil)
	test.That(t, params.Left.BodyPoseCam.Translation.At(0, 0), test.ShouldEqual, -0.0216)
	test.That(t, params.Right.BodyPoseCam, test.ShouldBeNil)

	_, err = NewStereoCameraParametersFromJSONFile(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	badPath := filepath.Join(t.TempDir(), "bad.json")
	test.That(t, os.WriteFile(badPath, []byte(`{"baseline_m": 0.11}`), 0o600), test.ShouldBeNil)
	_, err = NewStereoCameraParametersFromJSONFile(badPath)
	test.That(t, err, test.ShouldNotBeNil)
}
