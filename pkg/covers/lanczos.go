package covers

import (
	"math"

	"golang.org/x/image/draw"
)

// lanczos3 is the Lanczos3 resampling kernel spec.md §4.H step 4 calls
// for. golang.org/x/image/draw ships NearestNeighbor, ApproxBiLinear,
// BiLinear, and CatmullRom kernels but not Lanczos3, so it is
// implemented here as a draw.Kernel with a 3-lobe support radius.
var lanczos3 = draw.Kernel{Support: 3, At: lanczos3At}

func lanczos3At(x float64) float64 {
	if x == 0 {
		return 1
	}
	if x < -3 || x > 3 {
		return 0
	}
	px := math.Pi * x
	return 3 * math.Sin(px) * math.Sin(px/3) / (px * px)
}
