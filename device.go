package framepipe

import "github.com/gogpu/gpucontext"

// DeviceHandle provides GPU device access from the host application.
//
// framepipe RECEIVES the device from the host, it does not create one.
// An application that already owns a GPU device (a gogpu window, another
// wgpu user) implements DeviceHandle and passes it to the gpu backend via
// gpu.SetDeviceProvider, so the pipeline shares the device instead of
// opening a second one.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, giving the
// interface a framepipe-local name while staying compatible with the
// gpucontext ecosystem.
type DeviceHandle = gpucontext.DeviceProvider
