//go:build gpu

package gpu

/*
#cgo LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS
#include <CL/cl.h>
#include <stdlib.h>

static const char* filterdemo_cl_error_string(cl_int status) {
	switch (status) {
	case CL_SUCCESS: return "CL_SUCCESS";
	case CL_DEVICE_NOT_FOUND: return "CL_DEVICE_NOT_FOUND";
	case CL_DEVICE_NOT_AVAILABLE: return "CL_DEVICE_NOT_AVAILABLE";
	case CL_COMPILER_NOT_AVAILABLE: return "CL_COMPILER_NOT_AVAILABLE";
	case CL_MEM_OBJECT_ALLOCATION_FAILURE: return "CL_MEM_OBJECT_ALLOCATION_FAILURE";
	case CL_OUT_OF_RESOURCES: return "CL_OUT_OF_RESOURCES";
	case CL_OUT_OF_HOST_MEMORY: return "CL_OUT_OF_HOST_MEMORY";
	case CL_BUILD_PROGRAM_FAILURE: return "CL_BUILD_PROGRAM_FAILURE";
	case CL_INVALID_VALUE: return "CL_INVALID_VALUE";
	case CL_INVALID_PLATFORM: return "CL_INVALID_PLATFORM";
	case CL_INVALID_DEVICE: return "CL_INVALID_DEVICE";
	case CL_INVALID_CONTEXT: return "CL_INVALID_CONTEXT";
	case CL_INVALID_COMMAND_QUEUE: return "CL_INVALID_COMMAND_QUEUE";
	case CL_INVALID_HOST_PTR: return "CL_INVALID_HOST_PTR";
	case CL_INVALID_MEM_OBJECT: return "CL_INVALID_MEM_OBJECT";
	case CL_INVALID_BUFFER_SIZE: return "CL_INVALID_BUFFER_SIZE";
	case CL_INVALID_PROGRAM: return "CL_INVALID_PROGRAM";
	case CL_INVALID_PROGRAM_EXECUTABLE: return "CL_INVALID_PROGRAM_EXECUTABLE";
	case CL_INVALID_KERNEL_NAME: return "CL_INVALID_KERNEL_NAME";
	case CL_INVALID_KERNEL: return "CL_INVALID_KERNEL";
	case CL_INVALID_ARG_INDEX: return "CL_INVALID_ARG_INDEX";
	case CL_INVALID_ARG_VALUE: return "CL_INVALID_ARG_VALUE";
	case CL_INVALID_ARG_SIZE: return "CL_INVALID_ARG_SIZE";
	case CL_INVALID_KERNEL_ARGS: return "CL_INVALID_KERNEL_ARGS";
	case CL_INVALID_WORK_DIMENSION: return "CL_INVALID_WORK_DIMENSION";
	case CL_INVALID_WORK_GROUP_SIZE: return "CL_INVALID_WORK_GROUP_SIZE";
	case CL_INVALID_OPERATION: return "CL_INVALID_OPERATION";
	default: return "CL_UNKNOWN_ERROR";
	}
}

static cl_command_queue filterdemo_create_queue(cl_context ctx, cl_device_id device, cl_int *status) {
#if CL_TARGET_OPENCL_VERSION >= 200
	const cl_queue_properties props[] = {0};
	return clCreateCommandQueueWithProperties(ctx, device, props, status);
#else
	return clCreateCommandQueue(ctx, device, 0, status);
#endif
}
*/
import "C"

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/dustin/go-humanize"
)

// ErrNoDevices indicates that no usable OpenCL devices were found.
var ErrNoDevices = errors.New("no OpenCL devices found")

// openCLDevice keeps every texture as a linear RGBA8 cl_mem buffer.
type openCLDevice struct {
	deviceID C.cl_device_id
	context  C.cl_context
	queue    C.cl_command_queue
	info     DeviceInfo

	textures map[TextureHandle]*clTexture
	programs map[string]*clProgram
	next     TextureHandle

	destroyed bool
}

type clTexture struct {
	desc TextureDescriptor
	mem  C.cl_mem
}

type clProgram struct {
	program C.cl_program
	kernel  C.cl_kernel
}

// openOpenCL selects a device (GPU preferred, then CPU) and creates a context.
func openOpenCL() (Device, error) {
	records, err := enumeratePlatformRecords()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	chosen, ok := pickDevice(records, DeviceTypeGPU)
	if !ok {
		chosen, ok = pickDevice(records, DeviceTypeCPU)
	}
	if !ok {
		chosen, ok = pickDevice(records, "")
	}
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, ErrNoDevices)
	}

	var status C.cl_int
	context := C.clCreateContext(nil, 1, &chosen.id, nil, nil, &status)
	if status != C.CL_SUCCESS {
		return nil, statusError("clCreateContext", status)
	}

	queue := C.filterdemo_create_queue(context, chosen.id, &status)
	if status != C.CL_SUCCESS {
		C.clReleaseContext(context)
		return nil, statusError("clCreateCommandQueue", status)
	}

	slog.Info("OpenCL device opened",
		"device", chosen.info.Name,
		"vendor", chosen.info.Vendor,
		"compute_units", chosen.info.MaxComputeUnits,
	)

	return &openCLDevice{
		deviceID: chosen.id,
		context:  context,
		queue:    queue,
		info:     chosen.info,
		textures: make(map[TextureHandle]*clTexture),
		programs: make(map[string]*clProgram),
	}, nil
}

func pickDevice(records []platformRecord, want DeviceType) (deviceRecord, bool) {
	for _, platform := range records {
		for _, device := range platform.devices {
			if want == "" || device.info.Type == want {
				return device, true
			}
		}
	}
	return deviceRecord{}, false
}

func (d *openCLDevice) Info() DeviceInfo { return d.info }

func (d *openCLDevice) Poll(wait bool) {
	if wait && !d.destroyed {
		C.clFinish(d.queue)
	}
}

// Destroy releases every texture, program, the queue and the context.
func (d *openCLDevice) Destroy() {
	if d.destroyed {
		return
	}
	C.clFinish(d.queue)
	for h, tex := range d.textures {
		C.clReleaseMemObject(tex.mem)
		delete(d.textures, h)
	}
	for name, p := range d.programs {
		C.clReleaseKernel(p.kernel)
		C.clReleaseProgram(p.program)
		delete(d.programs, name)
	}
	C.clReleaseCommandQueue(d.queue)
	C.clReleaseContext(d.context)
	d.destroyed = true
}

func (d *openCLDevice) CreateTexture(desc TextureDescriptor, pix []byte) (TextureHandle, error) {
	if d.destroyed {
		return 0, ErrDeviceDestroyed
	}
	if desc.Width() <= 0 || desc.Height() <= 0 {
		return 0, fmt.Errorf("%w: invalid texture extent %dx%d", ErrSizeMismatch, desc.Width(), desc.Height())
	}
	if pix == nil {
		pix = make([]byte, desc.ByteSize())
	} else if err := checkHostSize(desc, pix); err != nil {
		return 0, err
	}

	var status C.cl_int
	mem := C.clCreateBuffer(d.context, C.CL_MEM_READ_WRITE|C.CL_MEM_COPY_HOST_PTR,
		C.size_t(len(pix)), unsafe.Pointer(&pix[0]), &status)
	if status != C.CL_SUCCESS {
		return 0, statusError("clCreateBuffer", status)
	}

	d.next++
	d.textures[d.next] = &clTexture{desc: desc, mem: mem}

	slog.Debug("Texture created",
		"handle", d.next,
		"label", desc.Label,
		"size", humanize.Bytes(uint64(desc.ByteSize())),
	)
	return d.next, nil
}

func (d *openCLDevice) DeleteTexture(h TextureHandle) error {
	tex, err := d.lookup(h)
	if err != nil {
		return err
	}
	C.clReleaseMemObject(tex.mem)
	delete(d.textures, h)
	return nil
}

func (d *openCLDevice) Describe(h TextureHandle) (TextureDescriptor, error) {
	tex, err := d.lookup(h)
	if err != nil {
		return TextureDescriptor{}, err
	}
	return tex.desc, nil
}

func (d *openCLDevice) Upload(h TextureHandle, pix []byte) error {
	tex, err := d.lookup(h)
	if err != nil {
		return err
	}
	if err := checkHostSize(tex.desc, pix); err != nil {
		return err
	}
	status := C.clEnqueueWriteBuffer(d.queue, tex.mem, C.CL_TRUE, 0, C.size_t(len(pix)), unsafe.Pointer(&pix[0]), 0, nil, nil)
	if status != C.CL_SUCCESS {
		return statusError("clEnqueueWriteBuffer", status)
	}
	return nil
}

func (d *openCLDevice) Download(h TextureHandle, dst []byte) error {
	tex, err := d.lookup(h)
	if err != nil {
		return err
	}
	if err := checkHostSize(tex.desc, dst); err != nil {
		return err
	}
	status := C.clEnqueueReadBuffer(d.queue, tex.mem, C.CL_TRUE, 0, C.size_t(len(dst)), unsafe.Pointer(&dst[0]), 0, nil, nil)
	if status != C.CL_SUCCESS {
		return statusError("clEnqueueReadBuffer", status)
	}
	return nil
}

func (d *openCLDevice) Dispatch(k Kernel, src, dst TextureHandle) error {
	in, err := d.lookup(src)
	if err != nil {
		return err
	}
	out, err := d.lookup(dst)
	if err != nil {
		return err
	}
	if in.desc.Size != out.desc.Size {
		return fmt.Errorf("%w: dispatch %s from %dx%d into %dx%d", ErrSizeMismatch, k.Name,
			in.desc.Width(), in.desc.Height(), out.desc.Width(), out.desc.Height())
	}

	p, err := d.program(k)
	if err != nil {
		return err
	}

	width := C.cl_int(in.desc.Width())
	height := C.cl_int(in.desc.Height())
	srcMem, dstMem := in.mem, out.mem

	args := []struct {
		name string
		size C.size_t
		ptr  unsafe.Pointer
	}{
		{"src", C.size_t(unsafe.Sizeof(srcMem)), unsafe.Pointer(&srcMem)},
		{"dst", C.size_t(unsafe.Sizeof(dstMem)), unsafe.Pointer(&dstMem)},
		{"width", C.size_t(unsafe.Sizeof(width)), unsafe.Pointer(&width)},
		{"height", C.size_t(unsafe.Sizeof(height)), unsafe.Pointer(&height)},
	}
	for i, arg := range args {
		if status := C.clSetKernelArg(p.kernel, C.cl_uint(i), arg.size, arg.ptr); status != C.CL_SUCCESS {
			return statusError("clSetKernelArg("+arg.name+")", status)
		}
	}

	global := [2]C.size_t{C.size_t(in.desc.Width()), C.size_t(in.desc.Height())}
	if status := C.clEnqueueNDRangeKernel(d.queue, p.kernel, 2, nil, &global[0], nil, 0, nil, nil); status != C.CL_SUCCESS {
		return statusError("clEnqueueNDRangeKernel", status)
	}
	if status := C.clFinish(d.queue); status != C.CL_SUCCESS {
		return statusError("clFinish", status)
	}
	return nil
}

// program builds and caches the OpenCL program of k.
func (d *openCLDevice) program(k Kernel) (*clProgram, error) {
	if p, ok := d.programs[k.Name]; ok {
		return p, nil
	}
	if k.OpenCL == "" {
		return nil, fmt.Errorf("%w: %s has no OpenCL program", ErrKernelUnsupported, k.Name)
	}

	source := C.CString(k.OpenCL)
	defer C.free(unsafe.Pointer(source))

	var status C.cl_int
	program := C.clCreateProgramWithSource(d.context, 1, &source, nil, &status)
	if status != C.CL_SUCCESS {
		return nil, statusError("clCreateProgramWithSource", status)
	}

	status = C.clBuildProgram(program, 1, &d.deviceID, nil, nil, nil)
	if status != C.CL_SUCCESS {
		d.dumpBuildLog(program)
		C.clReleaseProgram(program)
		return nil, statusError("clBuildProgram", status)
	}

	name := C.CString(k.Name)
	defer C.free(unsafe.Pointer(name))
	kernel := C.clCreateKernel(program, name, &status)
	if status != C.CL_SUCCESS {
		C.clReleaseProgram(program)
		return nil, statusError("clCreateKernel", status)
	}

	p := &clProgram{program: program, kernel: kernel}
	d.programs[k.Name] = p
	return p, nil
}

func (d *openCLDevice) dumpBuildLog(program C.cl_program) {
	var logSize C.size_t
	if status := C.clGetProgramBuildInfo(program, d.deviceID, C.CL_PROGRAM_BUILD_LOG, 0, nil, &logSize); status != C.CL_SUCCESS || logSize == 0 {
		return
	}
	buf := make([]byte, int(logSize))
	if status := C.clGetProgramBuildInfo(program, d.deviceID, C.CL_PROGRAM_BUILD_LOG, logSize, unsafe.Pointer(&buf[0]), nil); status != C.CL_SUCCESS {
		slog.Error("OpenCL: failed to fetch build log", "err", int(status))
		return
	}
	slog.Error("OpenCL build log", "log", trimNull(buf))
}

func (d *openCLDevice) lookup(h TextureHandle) (*clTexture, error) {
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}
	tex, ok := d.textures[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTexture, h)
	}
	return tex, nil
}

// EnumeratePlatforms returns discovered platforms with their devices.
func EnumeratePlatforms() ([]PlatformInfo, error) {
	records, err := enumeratePlatformRecords()
	if err != nil {
		return nil, err
	}

	out := make([]PlatformInfo, len(records))
	for i, platform := range records {
		out[i] = platform.info
	}
	return out, nil
}

type platformRecord struct {
	id      C.cl_platform_id
	info    PlatformInfo
	devices []deviceRecord
}

type deviceRecord struct {
	id   C.cl_device_id
	info DeviceInfo
}

func enumeratePlatformRecords() ([]platformRecord, error) {
	var count C.cl_uint
	if status := C.clGetPlatformIDs(0, nil, &count); status != C.CL_SUCCESS {
		return nil, statusError("clGetPlatformIDs(count)", status)
	}
	if count == 0 {
		return nil, nil
	}

	platformIDs := make([]C.cl_platform_id, int(count))
	if status := C.clGetPlatformIDs(count, &platformIDs[0], nil); status != C.CL_SUCCESS {
		return nil, statusError("clGetPlatformIDs(list)", status)
	}

	records := make([]platformRecord, 0, int(count))
	for _, pid := range platformIDs {
		rec := platformRecord{id: pid}
		var err error
		if rec.info.Name, err = getPlatformString(pid, C.CL_PLATFORM_NAME); err != nil {
			return nil, err
		}
		if rec.info.Vendor, err = getPlatformString(pid, C.CL_PLATFORM_VENDOR); err != nil {
			return nil, err
		}
		if rec.info.Version, err = getPlatformString(pid, C.CL_PLATFORM_VERSION); err != nil {
			return nil, err
		}

		devices, err := enumerateDevices(pid)
		if err != nil && !errors.Is(err, ErrNoDevices) {
			return nil, err
		}
		rec.devices = devices
		for _, device := range devices {
			rec.info.Devices = append(rec.info.Devices, device.info)
		}
		records = append(records, rec)
	}

	return records, nil
}

func enumerateDevices(platform C.cl_platform_id) ([]deviceRecord, error) {
	var count C.cl_uint
	status := C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, 0, nil, &count)
	if status == C.CL_DEVICE_NOT_FOUND || (status == C.CL_SUCCESS && count == 0) {
		return nil, ErrNoDevices
	}
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetDeviceIDs(count)", status)
	}

	deviceIDs := make([]C.cl_device_id, int(count))
	if status := C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, count, &deviceIDs[0], nil); status != C.CL_SUCCESS {
		return nil, statusError("clGetDeviceIDs(list)", status)
	}

	devices := make([]deviceRecord, 0, int(count))
	for _, id := range deviceIDs {
		info, err := buildDeviceInfo(id)
		if err != nil {
			return nil, err
		}
		devices = append(devices, deviceRecord{id: id, info: info})
	}
	return devices, nil
}

func buildDeviceInfo(id C.cl_device_id) (DeviceInfo, error) {
	var info DeviceInfo
	var err error
	if info.Name, err = getDeviceString(id, C.CL_DEVICE_NAME); err != nil {
		return DeviceInfo{}, err
	}
	if info.Vendor, err = getDeviceString(id, C.CL_DEVICE_VENDOR); err != nil {
		return DeviceInfo{}, err
	}
	if info.Version, err = getDeviceString(id, C.CL_DEVICE_VERSION); err != nil {
		return DeviceInfo{}, err
	}

	var rawType C.cl_device_type
	status := C.clGetDeviceInfo(id, C.CL_DEVICE_TYPE, C.size_t(unsafe.Sizeof(rawType)), unsafe.Pointer(&rawType), nil)
	if status != C.CL_SUCCESS {
		return DeviceInfo{}, statusError("clGetDeviceInfo(type)", status)
	}
	info.Type = mapDeviceType(rawType)

	var computeUnits C.cl_uint
	status = C.clGetDeviceInfo(id, C.CL_DEVICE_MAX_COMPUTE_UNITS, C.size_t(unsafe.Sizeof(computeUnits)), unsafe.Pointer(&computeUnits), nil)
	if status != C.CL_SUCCESS {
		return DeviceInfo{}, statusError("clGetDeviceInfo(computeUnits)", status)
	}
	info.MaxComputeUnits = uint32(computeUnits)

	return info, nil
}

func getPlatformString(id C.cl_platform_id, param C.cl_platform_info) (string, error) {
	var size C.size_t
	if status := C.clGetPlatformInfo(id, param, 0, nil, &size); status != C.CL_SUCCESS {
		return "", statusError("clGetPlatformInfo(size)", status)
	}
	if size == 0 {
		return "", nil
	}
	buf := make([]byte, int(size))
	if status := C.clGetPlatformInfo(id, param, size, unsafe.Pointer(&buf[0]), nil); status != C.CL_SUCCESS {
		return "", statusError("clGetPlatformInfo(value)", status)
	}
	return trimNull(buf), nil
}

func getDeviceString(id C.cl_device_id, param C.cl_device_info) (string, error) {
	var size C.size_t
	if status := C.clGetDeviceInfo(id, param, 0, nil, &size); status != C.CL_SUCCESS {
		return "", statusError("clGetDeviceInfo(size)", status)
	}
	if size == 0 {
		return "", nil
	}
	buf := make([]byte, int(size))
	if status := C.clGetDeviceInfo(id, param, size, unsafe.Pointer(&buf[0]), nil); status != C.CL_SUCCESS {
		return "", statusError("clGetDeviceInfo(value)", status)
	}
	return trimNull(buf), nil
}

func trimNull(buf []byte) string {
	if len(buf) > 0 && buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	return string(buf)
}

func mapDeviceType(dt C.cl_device_type) DeviceType {
	switch {
	case dt&C.CL_DEVICE_TYPE_GPU != 0:
		return DeviceTypeGPU
	case dt&C.CL_DEVICE_TYPE_CPU != 0:
		return DeviceTypeCPU
	case dt&C.CL_DEVICE_TYPE_ACCELERATOR != 0:
		return DeviceTypeAccelerator
	default:
		return DeviceTypeUnknown
	}
}

func statusError(prefix string, status C.cl_int) error {
	return fmt.Errorf("%s: %s (%d)", prefix, C.GoString(C.filterdemo_cl_error_string(status)), int(status))
}
