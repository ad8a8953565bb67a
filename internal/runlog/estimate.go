package runlog

import (
	"fmt"
	"syscall"
)

// Estimate is a pre-run storage projection for a plan.
type Estimate struct {
	Cycles   int     `json:"cycles"`
	Images   int     `json:"images"`
	EstGB    float64 `json:"estimated_gb"`
	FreeGB   float64 `json:"free_gb"`
	HaveFree bool    `json:"have_free"`
}

// EstimateStorage projects image count and disk usage for a run of
// nPlates plates over days at cadenceMinutes, assuming avgImageMB per
// image. Free space is read from the filesystem holding root; a
// statfs failure leaves HaveFree false rather than failing the plan.
func EstimateStorage(root string, nPlates, days, cadenceMinutes int, avgImageMB float64) Estimate {
	if cadenceMinutes < 1 {
		cadenceMinutes = 1
	}
	cycles := days * 24 * 60 / cadenceMinutes
	images := nPlates * cycles

	est := Estimate{
		Cycles: cycles,
		Images: images,
		EstGB:  float64(images) * avgImageMB / 1024.0,
	}

	var fs syscall.Statfs_t
	if err := syscall.Statfs(root, &fs); err == nil {
		est.FreeGB = float64(fs.Bavail) * float64(fs.Bsize) / (1 << 30)
		est.HaveFree = true
	}
	return est
}

func (e Estimate) String() string {
	s := fmt.Sprintf("Estimated storage: ~%.1f GB (%d images over %d cycles)", e.EstGB, e.Images, e.Cycles)
	if e.HaveFree {
		s += fmt.Sprintf(" | Free: %.1f GB", e.FreeGB)
	}
	return s
}
