package geom

import "math"

const touchEps = 1e-9

// Traverse visits every block cell pierced by the ray origin + t*dir for
// t in [0, maxDist), in order of entry, starting with the cell containing
// origin. A cell whose face is only touched at maxDist is not entered.
// visit returns false to stop. dir does not need to be normalized.
func Traverse(origin, dir Vec3, maxDist float64, visit func(b BlockPos, t float64) bool) error {
	d, err := Normalize(dir)
	if err != nil {
		return err
	}
	if !Finite(origin) || math.IsNaN(maxDist) || maxDist < 0 {
		return ErrDegenerate
	}

	cur := BlockAt(origin)
	if !visit(cur, 0) {
		return nil
	}

	var (
		step   [3]int
		tMax   [3]float64
		tDelta [3]float64
	)
	cell := [3]int{cur.X, cur.Y, cur.Z}
	for i := 0; i < 3; i++ {
		switch {
		case d[i] > 0:
			step[i] = 1
			tMax[i] = (float64(cell[i]+1) - origin[i]) / d[i]
			tDelta[i] = 1 / d[i]
		case d[i] < 0:
			step[i] = -1
			tMax[i] = (float64(cell[i]) - origin[i]) / d[i]
			tDelta[i] = -1 / d[i]
		default:
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}

	limit := 3*int(math.Ceil(maxDist)) + 3
	for n := 0; n < limit; n++ {
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t := tMax[axis]
		if t >= maxDist-touchEps {
			return nil
		}
		cell[axis] += step[axis]
		tMax[axis] += tDelta[axis]
		if !visit(BlockPos{X: cell[0], Y: cell[1], Z: cell[2]}, t) {
			return nil
		}
	}
	return nil
}
