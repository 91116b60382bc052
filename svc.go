// svc.go - the system call name table
package main

import "strings"

// systemCallIDs maps syscall names to their numeric ids. Descriptors may
// spell a name with or without the "svc" prefix.
var systemCallIDs = map[string]uint32{
	"SetHeapSize":                   0x01,
	"SetMemoryPermission":           0x02,
	"SetMemoryAttribute":            0x03,
	"MapMemory":                     0x04,
	"UnmapMemory":                   0x05,
	"QueryMemory":                   0x06,
	"ExitProcess":                   0x07,
	"CreateThread":                  0x08,
	"StartThread":                   0x09,
	"ExitThread":                    0x0A,
	"SleepThread":                   0x0B,
	"GetThreadPriority":             0x0C,
	"SetThreadPriority":             0x0D,
	"GetThreadCoreMask":             0x0E,
	"SetThreadCoreMask":             0x0F,
	"GetCurrentProcessorNumber":     0x10,
	"SignalEvent":                   0x11,
	"ClearEvent":                    0x12,
	"MapSharedMemory":               0x13,
	"UnmapSharedMemory":             0x14,
	"CreateTransferMemory":          0x15,
	"CloseHandle":                   0x16,
	"ResetSignal":                   0x17,
	"WaitSynchronization":           0x18,
	"CancelSynchronization":         0x19,
	"ArbitrateLock":                 0x1A,
	"ArbitrateUnlock":               0x1B,
	"WaitProcessWideKeyAtomic":      0x1C,
	"SignalProcessWideKey":          0x1D,
	"GetSystemTick":                 0x1E,
	"ConnectToNamedPort":            0x1F,
	"SendSyncRequestLight":          0x20,
	"SendSyncRequest":               0x21,
	"SendSyncRequestWithUserBuffer": 0x22,
	"SendAsyncRequestWithUserBuffer": 0x23,
	"GetProcessId":                  0x24,
	"GetThreadId":                   0x25,
	"Break":                         0x26,
	"OutputDebugString":             0x27,
	"ReturnFromException":           0x28,
	"GetInfo":                       0x29,
	"FlushEntireDataCache":          0x2A,
	"FlushDataCache":                0x2B,
	"MapPhysicalMemory":             0x2C,
	"UnmapPhysicalMemory":           0x2D,
	"GetDebugFutureThreadInfo":      0x2E,
	"GetLastThreadInfo":             0x2F,
	"GetResourceLimitLimitValue":    0x30,
	"GetResourceLimitCurrentValue":  0x31,
	"SetThreadActivity":             0x32,
	"GetThreadContext3":             0x33,
	"WaitForAddress":                0x34,
	"SignalToAddress":               0x35,
	"SynchronizePreemptionState":    0x36,
	"KernelDebug":                   0x3C,
	"ChangeKernelTraceState":        0x3D,
	"CreateSession":                 0x40,
	"AcceptSession":                 0x41,
	"ReplyAndReceiveLight":          0x42,
	"ReplyAndReceive":               0x43,
	"ReplyAndReceiveWithUserBuffer": 0x44,
	"CreateEvent":                   0x45,
	"MapPhysicalMemoryUnsafe":       0x48,
	"UnmapPhysicalMemoryUnsafe":     0x49,
	"SetUnsafeLimit":                0x4A,
	"CreateCodeMemory":              0x4B,
	"ControlCodeMemory":             0x4C,
	"SleepSystem":                   0x4D,
	"ReadWriteRegister":             0x4E,
	"SetProcessActivity":            0x4F,
	"CreateSharedMemory":            0x50,
	"MapTransferMemory":             0x51,
	"UnmapTransferMemory":           0x52,
	"CreateInterruptEvent":          0x53,
	"QueryPhysicalAddress":          0x54,
	"QueryIoMapping":                0x55,
	"CreateDeviceAddressSpace":      0x56,
	"AttachDeviceAddressSpace":      0x57,
	"DetachDeviceAddressSpace":      0x58,
	"MapDeviceAddressSpaceByForce":  0x59,
	"MapDeviceAddressSpaceAligned":  0x5A,
	"MapDeviceAddressSpace":         0x5B,
	"UnmapDeviceAddressSpace":       0x5C,
	"InvalidateProcessDataCache":    0x5D,
	"StoreProcessDataCache":         0x5E,
	"FlushProcessDataCache":         0x5F,
	"DebugActiveProcess":            0x60,
	"BreakDebugProcess":             0x61,
	"TerminateDebugProcess":         0x62,
	"GetDebugEvent":                 0x63,
	"ContinueDebugEvent":            0x64,
	"GetProcessList":                0x65,
	"GetThreadList":                 0x66,
	"GetDebugThreadContext":         0x67,
	"SetDebugThreadContext":         0x68,
	"QueryDebugProcessMemory":       0x69,
	"ReadDebugProcessMemory":        0x6A,
	"WriteDebugProcessMemory":       0x6B,
	"SetHardwareBreakPoint":         0x6C,
	"GetDebugThreadParam":           0x6D,
	"GetSystemInfo":                 0x6F,
	"CreatePort":                    0x70,
	"ManageNamedPort":               0x71,
	"ConnectToPort":                 0x72,
	"SetProcessMemoryPermission":    0x73,
	"MapProcessMemory":              0x74,
	"UnmapProcessMemory":            0x75,
	"QueryProcessMemory":            0x76,
	"MapProcessCodeMemory":          0x77,
	"UnmapProcessCodeMemory":        0x78,
	"CreateProcess":                 0x79,
	"StartProcess":                  0x7A,
	"TerminateProcess":              0x7B,
	"GetProcessInfo":                0x7C,
	"CreateResourceLimit":           0x7D,
	"SetResourceLimitLimitValue":    0x7E,
	"CallSecureMonitor":             0x7F,
}

// lookupSystemCall resolves a syscall name to its id.
func lookupSystemCall(name string) (uint32, bool) {
	trimmed := strings.TrimPrefix(name, "svc")
	id, ok := systemCallIDs[trimmed]
	return id, ok
}
