// Package camera recovers camera intrinsics and pose from a plane-to-image
// homography.
//
// The camera model has square pixels (fx = fy), zero skew and the principal
// point at the image centre. Cameras whose principal point sits far from the
// centre produce a systematically biased pose.
package camera

// Mat3 is a row-major 3x3 matrix.
type Mat3 [3][3]float64

// Vec3 is a 3-vector.
type Vec3 [3]float64

// Quaternion is a rotation quaternion stored as (x, y, z, w).
type Quaternion [4]float64

// Intrinsics describes a pinhole camera with a single focal length.
type Intrinsics struct {
	F  float64 `json:"f"`
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
}

// Matrix returns K = [[f,0,cx],[0,f,cy],[0,0,1]].
func (in Intrinsics) Matrix() Mat3 {
	return Mat3{
		{in.F, 0, in.Cx},
		{0, in.F, in.Cy},
		{0, 0, 1},
	}
}

// RenderPose is the camera pose in a y-up, z-backward rendering frame.
type RenderPose struct {
	Position   Vec3       `json:"position" yaml:"position"`
	Quaternion Quaternion `json:"quaternion" yaml:"quaternion"`
	FovYDeg    float64    `json:"fov_y_deg" yaml:"fov_y_deg"`
}

// Fallback records whether the focal length came from the size heuristic
// instead of the vanishing-point solve.
type Fallback struct {
	Applied bool    `json:"applied" yaml:"applied"`
	Reason  string  `json:"reason,omitempty" yaml:"reason,omitempty"`
	Focal   float64 `json:"focal,omitempty" yaml:"focal,omitempty"`
	// FocalSquared is the value the vanishing-point solve produced.
	FocalSquared float64 `json:"focal_squared" yaml:"focal_squared"`
}

// Pose is the full decomposition of a plane homography.
type Pose struct {
	Intrinsics Intrinsics
	// R and T are the vision-convention extrinsics (x right, y down, z forward).
	R Mat3
	T Vec3
	// Center is the camera centre -R^T t in plane coordinates.
	Center   Vec3
	Render   RenderPose
	Fallback Fallback
}
