package calib

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CamExtrinsics stores the body-to-camera pose as a 3x3 rotation and a 3x1 translation.
type CamExtrinsics struct {
	Rotation    *mat.Dense
	Translation *mat.Dense
}

// NewCamExtrinsics creates a pointer to a CamExtrinsics from a rotation and a translation matrix.
func NewCamExtrinsics(rotation, translation *mat.Dense) (*CamExtrinsics, error) {
	if rotation == nil || translation == nil {
		return nil, errors.New("extrinsics need both a rotation and a translation")
	}
	if r, c := rotation.Dims(); r != 3 || c != 3 {
		return nil, errors.Errorf("rotation must be 3x3, got %dx%d", r, c)
	}
	if r, c := translation.Dims(); r != 3 || c != 1 {
		return nil, errors.Errorf("translation must be 3x1, got %dx%d", r, c)
	}
	return &CamExtrinsics{Rotation: rotation, Translation: translation}, nil
}

// NewZeroExtrinsics returns the identity pose.
func NewZeroExtrinsics() *CamExtrinsics {
	rot := mat.NewDense(3, 3, nil)
	rot.Set(0, 0, 1)
	rot.Set(1, 1, 1)
	rot.Set(2, 2, 1)
	return &CamExtrinsics{Rotation: rot, Translation: mat.NewDense(3, 1, nil)}
}

// TransformPoint maps a point through the pose, R*p + t.
func (e *CamExtrinsics) TransformPoint(p r3.Vector) r3.Vector {
	v := mat.NewDense(3, 1, []float64{p.X, p.Y, p.Z})
	var out mat.Dense
	out.Mul(e.Rotation, v)
	out.Add(&out, e.Translation)
	return r3.Vector{X: out.At(0, 0), Y: out.At(1, 0), Z: out.At(2, 0)}
}

func (e *CamExtrinsics) String() string {
	return fmt.Sprintf("R=%v t=(%.4f, %.4f, %.4f)",
		mat.Formatted(e.Rotation, mat.Prefix(""), mat.Squeeze()),
		e.Translation.At(0, 0), e.Translation.At(1, 0), e.Translation.At(2, 0))
}

// camExtrinsicsJSON is the on-disk form of CamExtrinsics.
type camExtrinsicsJSON struct {
	Rotation    []float64 `json:"rotation_row_major"`
	Translation []float64 `json:"translation"`
}

// MarshalJSON writes the pose as a row-major rotation plus a translation vector.
func (e *CamExtrinsics) MarshalJSON() ([]byte, error) {
	out := camExtrinsicsJSON{
		Rotation:    append([]float64(nil), e.Rotation.RawMatrix().Data...),
		Translation: []float64{e.Translation.At(0, 0), e.Translation.At(1, 0), e.Translation.At(2, 0)},
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the pose from its row-major on-disk form.
func (e *CamExtrinsics) UnmarshalJSON(data []byte) error {
	var in camExtrinsicsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.Rotation) != 9 {
		return errors.Errorf("rotation must have 9 entries, got %d", len(in.Rotation))
	}
	if len(in.Translation) != 3 {
		return errors.Errorf("translation must have 3 entries, got %d", len(in.Translation))
	}
	e.Rotation = mat.NewDense(3, 3, in.Rotation)
	e.Translation = mat.NewDense(3, 1, in.Translation)
	return nil
}
