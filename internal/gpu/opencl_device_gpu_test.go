//go:build gpu

package gpu

import "testing"

const testInvertSource = `
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

func testInvert() Kernel {
	return Kernel{
		Name: "invert",
		Apply: func(dst, src []byte, width, height int) {
			for i := 0; i < width*height*BytesPerPixel; i += BytesPerPixel {
				dst[i+0] = 255 - src[i+0]
				dst[i+1] = 255 - src[i+1]
				dst[i+2] = 255 - src[i+2]
				dst[i+3] = src[i+3]
			}
		},
		OpenCL: testInvertSource,
	}
}

func runDispatch(t *testing.T, dev Device, k Kernel, pix []byte, width, height int) []byte {
	t.Helper()
	desc := NewTextureDescriptor("test", width, height)
	src, err := dev.CreateTexture(desc, pix)
	if err != nil {
		t.Fatalf("create src: %v", err)
	}
	defer dev.DeleteTexture(src)
	dst, err := dev.CreateTexture(desc, nil)
	if err != nil {
		t.Fatalf("create dst: %v", err)
	}
	defer dev.DeleteTexture(dst)

	if err := dev.Dispatch(k, src, dst); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	dev.Poll(true)
	out := make([]byte, len(pix))
	if err := dev.Download(dst, out); err != nil {
		t.Fatalf("download: %v", err)
	}
	return out
}

func TestOpenCLDeviceMatchesSoft(t *testing.T) {
	cl, err := Open("opencl")
	if err != nil {
		t.Skipf("OpenCL backend unavailable: %v", err)
	}
	defer cl.Destroy()

	const width, height = 17, 9
	pix := make([]byte, width*height*BytesPerPixel)
	for i := range pix {
		pix[i] = byte(i * 7)
	}

	want := runDispatch(t, NewSoftDevice(), testInvert(), pix, width, height)
	got := runDispatch(t, cl, testInvert(), pix, width, height)

	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("byte %d: soft=%d opencl=%d", i, want[i], got[i])
		}
	}
}

func TestOpenCLDeviceRejectsKernelWithoutSource(t *testing.T) {
	cl, err := Open("opencl")
	if err != nil {
		t.Skipf("OpenCL backend unavailable: %v", err)
	}
	defer cl.Destroy()

	k := testInvert()
	k.OpenCL = ""
	desc := NewTextureDescriptor("test", 1, 1)
	tex, err := cl.CreateTexture(desc, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := cl.Dispatch(k, tex, tex); err == nil {
		t.Fatal("expected dispatch without OpenCL source to fail")
	}
}
