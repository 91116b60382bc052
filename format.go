// format.go - fixed binary layouts of the META, ACID and ACI0 headers
//
// These structs are the loader's wire format: every field is at a fixed
// offset, all integers little-endian, no implicit padding. They are written
// with encoding/binary, which emits them packed; the *Size constants pin
// the expected byte counts and are checked by the tests.
package main

import (
	"encoding/binary"
	"io"
)

const (
	metaHeaderSize    = 0x80
	acidSignatureSize = 0x100
	acidHeaderSize    = 0x140
	aciHeaderSize     = 0x40
	acidFacSize       = 0x2C
	aciFacSize        = 0x1C
)

// metaHeader flag bits.
const (
	metaFlag64Bit                   = 1 << 0
	metaFlagOptimizeMemory          = 1 << 4
	metaFlagDisableDeviceAsMerge    = 1 << 5
	metaFlagAddressSpaceShift       = 1
)

// acidHeader flag bits.
const (
	acidFlagProduction          = 1 << 0
	acidFlagUnqualifiedApproval = 1 << 1
	acidFlagMemoryRegionShift   = 2
)

// metaHeader is the outer fixed header of the blob.
type metaHeader struct {
	Magic                  [4]byte
	SignatureKeyGeneration uint32
	Reserved8              [4]byte
	Flags                  uint8
	Reserved13             uint8
	MainThreadPriority     uint8
	MainThreadCoreNumber   uint8
	Reserved16             [4]byte
	SystemResourceSize     uint32
	Version                uint32
	MainThreadStackSize    uint32
	Name                   [16]byte
	ProductCode            [16]byte
	Reserved64             [0x30]byte
	AciOffset              uint32
	AciSize                uint32
	AcidOffset             uint32
	AcidSize               uint32
}

// acidHeader is the declaration container header. It follows the 0x100
// byte signature block; its offsets are relative to the container start,
// signature included.
type acidHeader struct {
	RsaNcaPubkey             [0x100]byte
	Magic                    [4]byte
	SignedSize               uint32
	Reserved                 [4]byte
	Flags                    uint32
	ProgramIDRangeMin        uint64
	ProgramIDRangeMax        uint64
	FsAccessControlOffset    uint32
	FsAccessControlSize      uint32
	ServiceAccessControlOffset uint32
	ServiceAccessControlSize uint32
	KernelAccessControlOffset uint32
	KernelAccessControlSize  uint32
	Reserved38               [8]byte
}

// acidFsAccess is the declaration container's filesystem access block.
type acidFsAccess struct {
	Version              uint8
	ContentOwnerIDCount  uint8
	SaveDataOwnerIDCount uint8
	Padding              uint8
	FsAccessFlags        [8]byte
	ContentOwnerIDMin    uint64
	ContentOwnerIDMax    uint64
	SaveDataOwnerIDMin   uint64
	SaveDataOwnerIDMax   uint64
}

// aciHeader is the instance container header; offsets are relative to the
// container start.
type aciHeader struct {
	Magic                    [4]byte
	Reserved4                [12]byte
	ProgramID                uint64
	Reserved18               [8]byte
	FsAccessControlOffset    uint32
	FsAccessControlSize      uint32
	ServiceAccessControlOffset uint32
	ServiceAccessControlSize uint32
	KernelAccessControlOffset uint32
	KernelAccessControlSize  uint32
	Reserved38               [8]byte
}

// aciFsAccess is the instance container's filesystem access block.
type aciFsAccess struct {
	Version                uint8
	Padding                [3]byte
	FsAccessFlags          [8]byte
	ContentOwnerInfoOffset uint32
	ContentOwnerInfoSize   uint32
	SaveDataOwnerInfoOffset uint32
	SaveDataOwnerInfoSize  uint32
}

// writeStruct emits a packed little-endian header.
func writeStruct(w io.Writer, v interface{}) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// readStruct is the inverse, used by inspect mode.
func readStruct(r io.Reader, v interface{}) error {
	return binary.Read(r, binary.LittleEndian, v)
}
