//go:build darwin

package cpu

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

/*
#include <mach/mach.h>
#include <mach/processor_info.h>
#include <mach/mach_host.h>
*/
import "C"

// ReadCoreTimes samples per-core counters using Mach host_processor_info.
func ReadCoreTimes() ([]CoreTimes, error) {
	var (
		numCPU     C.natural_t
		cpuInfo    *C.integer_t
		numCPUInfo C.mach_msg_type_number_t
	)

	host := C.mach_host_self()
	ret := C.host_processor_info(host, C.PROCESSOR_CPU_LOAD_INFO, &numCPU, (*C.processor_info_array_t)(unsafe.Pointer(&cpuInfo)), &numCPUInfo)
	if ret != C.KERN_SUCCESS {
		return nil, fmt.Errorf("host_processor_info failed: %d", ret)
	}
	defer C.vm_deallocate(C.mach_task_self_, C.vm_address_t(uintptr(unsafe.Pointer(cpuInfo))), C.vm_size_t(numCPUInfo)*C.vm_size_t(unsafe.Sizeof(C.integer_t(0))))

	loadInfo := (*[1 << 20]C.integer_t)(unsafe.Pointer(cpuInfo))
	times := make([]CoreTimes, 0, int(numCPU))

	for i := C.natural_t(0); i < numCPU; i++ {
		offset := i * C.CPU_STATE_MAX
		times = append(times, CoreTimes{
			User:   uint64(loadInfo[offset+C.CPU_STATE_USER]) + uint64(loadInfo[offset+C.CPU_STATE_NICE]),
			System: uint64(loadInfo[offset+C.CPU_STATE_SYSTEM]),
			Idle:   uint64(loadInfo[offset+C.CPU_STATE_IDLE]),
		})
	}

	return times, nil
}

// LogicalCores returns hw.logicalcpu.
func LogicalCores() int {
	n, err := unix.SysctlUint32("hw.logicalcpu")
	if err != nil || n == 0 {
		return runtime.NumCPU()
	}
	return int(n)
}
