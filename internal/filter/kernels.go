package filter

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/cwbudde/filterdemo/internal/gpu"
)

const identitySource = `
__kernel void identity(__global const uchar4 *src, __global uchar4 *dst,
                       const int width, const int height) {
    const int x = get_global_id(0);
    const int y = get_global_id(1);
    if (x >= width || y >= height) {
        return;
    }
    dst[y * width + x] = src[y * width + x];
}
`

const invertSource = `
__kernel void invert(__global const uchar4 *src, __global uchar4 *dst,
                     const int width, const int height) {
    const int x = get_global_id(0);
    const int y = get_global_id(1);
    if (x >= width || y >= height) {
        return;
    }
    const uchar4 c = src[y * width + x];
    dst[y * width + x] = (uchar4)(255 - c.x, 255 - c.y, 255 - c.z, c.w);
}
`

const grayscaleSource = `
__kernel void grayscale(__global const uchar4 *src, __global uchar4 *dst,
                        const int width, const int height) {
    const int x = get_global_id(0);
    const int y = get_global_id(1);
    if (x >= width || y >= height) {
        return;
    }
    const uchar4 c = src[y * width + x];
    const float l = 0.299f * c.x + 0.587f * c.y + 0.114f * c.z;
    const uchar v = convert_uchar_sat(l + 0.5f);
    dst[y * width + x] = (uchar4)(v, v, v, c.w);
}
`

// Identity copies the input unchanged.
func Identity() gpu.Kernel {
	return gpu.Kernel{
		Name:   "identity",
		Apply:  func(dst, src []byte, _, _ int) { copy(dst, src) },
		OpenCL: identitySource,
	}
}

// Invert inverts the color channels and keeps alpha.
func Invert() gpu.Kernel {
	return gpu.Kernel{
		Name: "invert",
		Apply: func(dst, src []byte, width, height int) {
			n := width * height * gpu.BytesPerPixel
			for i := 0; i < n; i += gpu.BytesPerPixel {
				dst[i+0] = 255 - src[i+0]
				dst[i+1] = 255 - src[i+1]
				dst[i+2] = 255 - src[i+2]
				dst[i+3] = src[i+3]
			}
		},
		OpenCL: invertSource,
	}
}

// Grayscale replaces each color with its Rec. 601 luma and keeps alpha.
func Grayscale() gpu.Kernel {
	return gpu.Kernel{
		Name: "grayscale",
		Apply: func(dst, src []byte, width, height int) {
			copy(dst, imaging.Grayscale(view(src, width, height)).Pix)
		},
		OpenCL: grayscaleSource,
	}
}

// Blur applies a gaussian blur. It has no OpenCL program.
func Blur(sigma float64) gpu.Kernel {
	return gpu.Kernel{
		Name: "blur",
		Apply: func(dst, src []byte, width, height int) {
			copy(dst, imaging.Blur(view(src, width, height), sigma).Pix)
		},
	}
}

// view exposes interleaved RGBA8 pixels as an image without copying.
func view(pix []byte, width, height int) *image.NRGBA {
	return &image.NRGBA{
		Pix:    pix,
		Stride: width * gpu.BytesPerPixel,
		Rect:   image.Rect(0, 0, width, height),
	}
}
