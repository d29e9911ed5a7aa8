package pipeline

import (
	"errors"
	"fmt"
	"math"

	"pcb-extractor/internal/segment"
)

// ErrInvalidParams is returned by Process for parameter sets that fail
// validation.
var ErrInvalidParams = errors.New("invalid processing parameters")

// Params controls one extraction run. Kernel sizes and filter strengths are
// stored as slider indices and converted by the accessor methods. A Params
// value is never modified by the pipeline.
type Params struct {
	BlurKernelIndex       int `json:"blur_kernel_index"`       // Gaussian kernel = 2n+1
	SigmaIndex            int `json:"sigma_index"`             // Gaussian sigma = n/10, at least 0.1
	ClaheClipIndex        int `json:"clahe_clip_index"`        // CLAHE clip limit = n/10
	SeparationKernelIndex int `json:"separation_kernel_index"` // Open kernel = 2n+1
	FillHolesKernelIndex  int `json:"fill_holes_kernel_index"` // Close kernel = 2n+1
	MinArea               int `json:"min_area"`                // Contours at or below this area are dropped
}

// DefaultParams returns the default parameter set.
func DefaultParams() Params {
	return Params{
		BlurKernelIndex:       2,
		SigmaIndex:            10,
		ClaheClipIndex:        20,
		SeparationKernelIndex: 1,
		FillHolesKernelIndex:  2,
		MinArea:               100,
	}
}

// WithBlurKernelIndex returns a copy with the blur kernel index set.
func (p Params) WithBlurKernelIndex(n int) Params {
	p.BlurKernelIndex = n
	return p
}

// WithSigmaIndex returns a copy with the sigma index set.
func (p Params) WithSigmaIndex(n int) Params {
	p.SigmaIndex = n
	return p
}

// WithClaheClipIndex returns a copy with the CLAHE clip index set.
func (p Params) WithClaheClipIndex(n int) Params {
	p.ClaheClipIndex = n
	return p
}

// WithSeparationKernelIndex returns a copy with the separation kernel index set.
func (p Params) WithSeparationKernelIndex(n int) Params {
	p.SeparationKernelIndex = n
	return p
}

// WithFillHolesKernelIndex returns a copy with the fill-holes kernel index set.
func (p Params) WithFillHolesKernelIndex(n int) Params {
	p.FillHolesKernelIndex = n
	return p
}

// WithMinArea returns a copy with the minimum component area set.
func (p Params) WithMinArea(n int) Params {
	p.MinArea = n
	return p
}

func (p Params) BlurKernelSize() int { return 2*p.BlurKernelIndex + 1 }

func (p Params) Sigma() float64 { return math.Max(float64(p.SigmaIndex)/10, 0.1) }

func (p Params) ClipLimit() float64 { return float64(p.ClaheClipIndex) / 10 }

func (p Params) FillHolesKernelSize() int { return 2*p.FillHolesKernelIndex + 1 }

func (p Params) SeparationKernelSize() int { return 2*p.SeparationKernelIndex + 1 }

// SegmentOptions returns the derived sizes used by the segmentation stages.
func (p Params) SegmentOptions() segment.Options {
	return segment.Options{
		BlurKernelSize:       p.BlurKernelSize(),
		Sigma:                p.Sigma(),
		ClipLimit:            p.ClipLimit(),
		FillHolesKernelSize:  p.FillHolesKernelSize(),
		SeparationKernelSize: p.SeparationKernelSize(),
	}
}

// Validate rejects negative fields.
func (p Params) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"blur kernel index", p.BlurKernelIndex},
		{"sigma index", p.SigmaIndex},
		{"CLAHE clip index", p.ClaheClipIndex},
		{"separation kernel index", p.SeparationKernelIndex},
		{"fill holes kernel index", p.FillHolesKernelIndex},
		{"minimum area", p.MinArea},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("%w: %s is %d", ErrInvalidParams, f.name, f.value)
		}
	}
	return nil
}
