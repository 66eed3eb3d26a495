package focus

import (
	"gocv.io/x/gocv"
)

// Score is the variance of the Laplacian of the grayscale frame. Higher is
// sharper; a flat frame scores 0.
func Score(frame gocv.Mat) float64 {
	if frame.Empty() {
		return 0
	}

	gray := frame
	if frame.Channels() != 1 {
		gray = gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	}

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean := gocv.NewMat()
	stddev := gocv.NewMat()
	defer mean.Close()
	defer stddev.Close()
	gocv.MeanStdDev(lap, &mean, &stddev)

	sd := stddev.GetDoubleAt(0, 0)
	return sd * sd
}
