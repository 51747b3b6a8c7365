package frontend

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/PeterCalifano/Kimera-VIO-PeterC-dev/calib"
)

func validKp(x, y float64) StatusKeypoint {
	return StatusKeypoint{Status: StatusValid, Pixel: r2.Point{X: x, Y: y}}
}

func testCamParams() *calib.CameraParameters {
	return &calib.CameraParameters{
		PinholeCameraIntrinsics: calib.PinholeCameraIntrinsics{
			Width: 640, Height: 480,
			Fx: 500, Fy: 500, Ppx: 320, Ppy: 240,
		},
		BodyPoseCam: calib.NewZeroExtrinsics(),
	}
}

func testStereoRig() *calib.StereoCameraParameters {
	return &calib.StereoCameraParameters{
		Left:     testCamParams(),
		Right:    testCamParams(),
		Baseline: 0.2,
	}
}

// newTestStereoFrame builds a three-keypoint stereo frame: index 0 fully
// valid, index 1 missing its left rectified coordinate, index 2 with zero
// disparity.
func newTestStereoFrame(t *testing.T) *StereoFrame {
	t.Helper()
	left := &Frame{
		ID:        1,
		Timestamp: 1000,
		CamParams: testCamParams(),
		Keypoints: []r2.Point{{X: 110, Y: 50}, {X: 200, Y: 100}, {X: 100, Y: 80}},
		Scores:    []float64{0.9, 0.8, 0.7},
		Landmarks: []LandmarkID{1, 2, 3},
	}
	right := &Frame{
		ID:        1,
		Timestamp: 1000,
		CamParams: testCamParams(),
		Keypoints: []r2.Point{{X: 100, Y: 50}, {X: 195, Y: 100}, {X: 100, Y: 80}},
	}
	sf, err := NewStereoFrame(1, 1000, left, right)
	test.That(t, err, test.ShouldBeNil)
	leftRect := StatusKeypoints{
		validKp(110, 50),
		{Status: StatusNoLeftRect, Pixel: r2.Point{X: 200, Y: 100}},
		validKp(100, 80),
	}
	rightRect := StatusKeypoints{
		validKp(100, 50),
		validKp(195, 100),
		validKp(100, 80),
	}
	test.That(t, sf.SetRectifiedKeypoints(leftRect, rightRect), test.ShouldBeNil)
	return sf
}

func TestNewStereoFrameValidation(t *testing.T) {
	left := &Frame{ID: 1, Timestamp: 1000}
	right := &Frame{ID: 1, Timestamp: 1000}

	sf, err := NewStereoFrame(1, 1000, left, right)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sf, test.ShouldNotBeNil)
	test.That(t, sf.IsRectified(), test.ShouldBeFalse)
	test.That(t, sf.IsKeyframe(), test.ShouldBeFalse)

	_, err = NewStereoFrame(1, 1000, nil, right)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewStereoFrame(2, 1000, left, right)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "ids do not match")

	badTime := &Frame{ID: 1, Timestamp: 2000}
	_, err = NewStereoFrame(1, 1000, left, badTime)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "timestamps do not match")
}

func TestSetIsKeyframePropagation(t *testing.T) {
	sf := newTestStereoFrame(t)
	sf.SetIsKeyframe(true)
	test.That(t, sf.IsKeyframe(), test.ShouldBeTrue)
	test.That(t, sf.Left.IsKeyframe, test.ShouldBeTrue)
	test.That(t, sf.Right.IsKeyframe, test.ShouldBeTrue)

	sf.SetIsKeyframe(false)
	test.That(t, sf.IsKeyframe(), test.ShouldBeFalse)
	test.That(t, sf.Left.IsKeyframe, test.ShouldBeFalse)
	test.That(t, sf.Right.IsKeyframe, test.ShouldBeFalse)
}

func TestSetRectifiedKeypointsSizeMismatch(t *testing.T) {
	sf := newTestStereoFrame(t)
	err := sf.SetRectifiedKeypoints(StatusKeypoints{validKp(1, 1)}, sf.RightRectified())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "disagree with detected keypoints")
}

func TestCheckStereoFrame(t *testing.T) {
	sf := newTestStereoFrame(t)
	_, err := sf.EstimateDepths(testStereoRig(), &StereoMatchingParams{MinPointDist: 0.1, MaxPointDist: 50})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sf.CheckStereoFrame(), test.ShouldBeNil)

	t.Run("score size mismatch", func(t *testing.T) {
		sf := newTestStereoFrame(t)
		sf.Left.Scores = sf.Left.Scores[:2]
		err := sf.CheckStereoFrame()
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "scores size")
	})

	t.Run("y disparity exceeded", func(t *testing.T) {
		sf := newTestStereoFrame(t)
		_, err := sf.EstimateDepths(testStereoRig(), &StereoMatchingParams{MinPointDist: 0.1, MaxPointDist: 50})
		test.That(t, err, test.ShouldBeNil)
		sf.Keypoints[0].RightRect.Pixel.Y += 4
		err = sf.CheckStereoFrame()
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "different y")
	})

	t.Run("zero right keypoint", func(t *testing.T) {
		sf := newTestStereoFrame(t)
		_, err := sf.EstimateDepths(testStereoRig(), &StereoMatchingParams{MinPointDist: 0.1, MaxPointDist: 50})
		test.That(t, err, test.ShouldBeNil)
		sf.Right.Keypoints[0] = r2.Point{}
		err = sf.CheckStereoFrame()
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "is zero")
	})

	t.Run("nonpositive depth for valid status", func(t *testing.T) {
		sf := newTestStereoFrame(t)
		_, err := sf.EstimateDepths(testStereoRig(), &StereoMatchingParams{MinPointDist: 0.1, MaxPointDist: 50})
		test.That(t, err, test.ShouldBeNil)
		sf.Keypoints[0].Point3 = r3.Vector{}
		err = sf.CheckStereoFrame()
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "depth sign mismatch at index 0")
	})

	t.Run("positive depth for invalid status", func(t *testing.T) {
		sf := newTestStereoFrame(t)
		_, err := sf.EstimateDepths(testStereoRig(), &StereoMatchingParams{MinPointDist: 0.1, MaxPointDist: 50})
		test.That(t, err, test.ShouldBeNil)
		sf.Keypoints[1].Point3 = r3.Vector{Z: 5}
		err = sf.CheckStereoFrame()
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "depth sign mismatch at index 1")
		test.That(t, err.Error(), test.ShouldContainSubstring, "NO_LEFT_RECT")
	})
}

func TestPoints3InBodyFrame(t *testing.T) {
	sf := newTestStereoFrame(t)
	_, err := sf.EstimateDepths(testStereoRig(), &StereoMatchingParams{MinPointDist: 0.1, MaxPointDist: 50})
	test.That(t, err, test.ShouldBeNil)

	// translate the camera 1m along body x
	rot := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	trans := mat.NewDense(3, 1, []float64{1, 0, 0})
	pose, err := calib.NewCamExtrinsics(rot, trans)
	test.That(t, err, test.ShouldBeNil)
	sf.Left.CamParams.BodyPoseCam = pose

	pts, err := sf.Points3InBodyFrame()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(pts), test.ShouldEqual, 3)
	camPts := sf.Points3()
	test.That(t, pts[0].X, test.ShouldAlmostEqual, camPts[0].X+1)
	test.That(t, pts[0].Z, test.ShouldAlmostEqual, camPts[0].Z)
	// invalid rows stay at the zero vector
	test.That(t, pts[1], test.ShouldResemble, r3.Vector{})
	test.That(t, pts[2], test.ShouldResemble, r3.Vector{})
}

func TestStereoFrameString(t *testing.T) {
	sf := newTestStereoFrame(t)
	out := sf.String()
	test.That(t, out, test.ShouldContainSubstring, "stereo frame 1")
	test.That(t, out, test.ShouldContainSubstring, "t=1000")
	test.That(t, out, test.ShouldContainSubstring, "left keypoints: 3")
	test.That(t, out, test.ShouldContainSubstring, "body_P_cam")
}

func TestLogKeypointStats(t *testing.T) {
	logger := golog.NewTestLogger(t)
	sf := newTestStereoFrame(t)
	test.That(t, sf.LogKeypointStats(logger), test.ShouldBeNil)

	sf.Keypoints[0].RightRect.Status = KeypointStatus(99)
	test.That(t, sf.LogKeypointStats(logger), test.ShouldNotBeNil)
}
