// assemble.go - layout computation and ordered emission of the output blob
//
// The blob is META, then the declaration container (signature + ACID header
// + FAC + SAC + KAC), then the instance container (ACI0 header + FAC + SAC
// + KAC). The SAC and KAC tables are encoded exactly once; the header size
// fields and the emission loop both read those cached buffers, so the two
// can never disagree. All validation happens before the first output byte.
package main

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// AcidBehavior selects how the declaration container is produced:
// reuse an external pre-signed container when AcidPath is set, sign with
// the key at PemPath when that is set, otherwise emit a zeroed placeholder
// signature block.
type AcidBehavior struct {
	PemPath  string
	AcidPath string
}

// encodeKernelCaps concatenates every capability's words, little-endian,
// in descriptor order.
func encodeKernelCaps(caps []KernelCapability) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range caps {
		words, err := c.Encode()
		if err != nil {
			return nil, err
		}
		for _, w := range words {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], w)
			buf.Write(b[:])
		}
	}
	return buf.Bytes(), nil
}

// WriteNpdm encodes the descriptor and streams the complete blob to w,
// append-only, start to finish.
func (n *Npdm) WriteNpdm(w io.Writer, behavior AcidBehavior) error {
	accessed, hosted, err := n.serviceLists()
	if err != nil {
		return err
	}
	sac, err := encodeServiceAccess(accessed, hosted)
	if err != nil {
		return err
	}
	kac, err := encodeKernelCaps(n.KernelCapabilities.List())
	if err != nil {
		return err
	}

	if n.AddressSpaceType&^uint8(3) != 0 {
		return invalidValue("address_space_type")
	}
	if n.MemoryRegion&^uint32(3) != 0 {
		return invalidValue("memory_region")
	}

	var meta metaHeader
	copy(meta.Magic[:], "META")
	if n.SignatureKeyGeneration != nil {
		meta.SignatureKeyGeneration = *n.SignatureKeyGeneration
	}
	flags := (n.AddressSpaceType & 3) << metaFlagAddressSpaceShift
	if n.Is64Bit {
		flags |= metaFlag64Bit
	}
	if n.OptimizeMemoryAllocation != nil && *n.OptimizeMemoryAllocation {
		flags |= metaFlagOptimizeMemory
	}
	if n.DisableDeviceAddressSpaceMerge != nil && *n.DisableDeviceAddressSpaceMerge {
		flags |= metaFlagDisableDeviceAsMerge
	}
	meta.Flags = flags
	meta.MainThreadPriority = n.MainThreadPriority
	meta.MainThreadCoreNumber = n.MainThreadCoreNumber
	if n.SystemResourceSize != nil {
		meta.SystemResourceSize = *n.SystemResourceSize
	}
	if n.Version != nil {
		meta.Version = *n.Version
	}
	meta.MainThreadStackSize = uint32(n.MainThreadStackSize)
	setFixedString(meta.Name[:], n.Name, "name")
	// The product code field stays zeroed regardless of the descriptor.

	meta.AcidOffset = metaHeaderSize

	var reused []byte
	if behavior.AcidPath != "" {
		reused, err = os.ReadFile(behavior.AcidPath)
		if err != nil {
			return err
		}
		meta.AcidSize = uint32(len(reused))
	} else {
		meta.AcidSize = uint32(acidSignatureSize + acidHeaderSize + acidFacSize + len(sac) + len(kac))
	}
	meta.AciOffset = meta.AcidOffset + meta.AcidSize
	meta.AciSize = uint32(aciHeaderSize + aciFacSize + len(sac) + len(kac))

	var sig, acidContent []byte
	if reused == nil {
		acidContent, err = n.buildACIDContent(meta.AcidSize, sac, kac)
		if err != nil {
			return err
		}
		if behavior.PemPath != "" {
			key, err := loadPrivateKey(behavior.PemPath)
			if err != nil {
				return err
			}
			sig, err = signACID(key, acidContent)
			if err != nil {
				return err
			}
		} else {
			sig = make([]byte, acidSignatureSize)
		}
	}

	// Everything is validated and encoded; from here on the stream is
	// written once, in order.
	if err := writeStruct(w, &meta); err != nil {
		return err
	}
	if reused != nil {
		if _, err := w.Write(reused); err != nil {
			return err
		}
	} else {
		if _, err := w.Write(sig); err != nil {
			return err
		}
		if _, err := w.Write(acidContent); err != nil {
			return err
		}
	}

	var aci aciHeader
	copy(aci.Magic[:], "ACI0")
	aci.ProgramID = uint64(n.ProgramID)
	aci.FsAccessControlOffset = aciHeaderSize
	aci.FsAccessControlSize = aciFacSize
	aci.ServiceAccessControlOffset = aci.FsAccessControlOffset + aci.FsAccessControlSize
	aci.ServiceAccessControlSize = uint32(len(sac))
	aci.KernelAccessControlOffset = aci.ServiceAccessControlOffset + aci.ServiceAccessControlSize
	aci.KernelAccessControlSize = uint32(len(kac))
	if err := writeStruct(w, &aci); err != nil {
		return err
	}

	var fac aciFsAccess
	fac.Version = 1
	binary.LittleEndian.PutUint64(fac.FsAccessFlags[:], uint64(n.FsAccessControl.Flags))
	fac.ContentOwnerInfoOffset = aciFacSize // no owner info is emitted
	fac.SaveDataOwnerInfoOffset = aciFacSize
	if err := writeStruct(w, &fac); err != nil {
		return err
	}
	if _, err := w.Write(sac); err != nil {
		return err
	}
	if _, err := w.Write(kac); err != nil {
		return err
	}
	return nil
}

// buildACIDContent builds the unsigned declaration container: ACID header,
// FAC, SAC and KAC, in that order. These are the exact bytes the signature
// covers and the exact bytes written after it.
func (n *Npdm) buildACIDContent(acidSize uint32, sac, kac []byte) ([]byte, error) {
	var acid acidHeader
	if n.DeveloperKey != "" {
		raw, err := hex.DecodeString(n.DeveloperKey)
		if err != nil || len(raw) != len(acid.RsaNcaPubkey) {
			return nil, invalidValue("developer_key")
		}
		copy(acid.RsaNcaPubkey[:], raw)
	}
	copy(acid.Magic[:], "ACID")
	acid.SignedSize = acidSize - acidSignatureSize

	flags := uint32(0)
	if n.IsProduction == nil || *n.IsProduction {
		flags |= acidFlagProduction
	}
	if n.UnqualifiedApproval != nil && *n.UnqualifiedApproval {
		flags |= acidFlagUnqualifiedApproval
	}
	flags |= (n.MemoryRegion & 3) << acidFlagMemoryRegionShift
	acid.Flags = flags

	acid.ProgramIDRangeMin = uint64(n.ProgramID)
	if n.ProgramIDRangeMin != nil {
		acid.ProgramIDRangeMin = uint64(*n.ProgramIDRangeMin)
	}
	acid.ProgramIDRangeMax = uint64(n.ProgramID)
	if n.ProgramIDRangeMax != nil {
		acid.ProgramIDRangeMax = uint64(*n.ProgramIDRangeMax)
	}

	acid.FsAccessControlOffset = acidSignatureSize + acidHeaderSize
	acid.FsAccessControlSize = acidFacSize
	acid.ServiceAccessControlOffset = acid.FsAccessControlOffset + acid.FsAccessControlSize
	acid.ServiceAccessControlSize = uint32(len(sac))
	acid.KernelAccessControlOffset = acid.ServiceAccessControlOffset + acid.ServiceAccessControlSize
	acid.KernelAccessControlSize = uint32(len(kac))

	var fac acidFsAccess
	fac.Version = 1
	binary.LittleEndian.PutUint64(fac.FsAccessFlags[:], uint64(n.FsAccessControl.Flags))

	var buf bytes.Buffer
	if err := writeStruct(&buf, &acid); err != nil {
		return nil, err
	}
	if err := writeStruct(&buf, &fac); err != nil {
		return nil, err
	}
	buf.Write(sac)
	buf.Write(kac)
	if buf.Len() != int(acidSize)-acidSignatureSize {
		panic(fmt.Sprintf("serialized ACID has wrong size: %d bytes instead of %d", buf.Len(), int(acidSize)-acidSignatureSize))
	}
	return buf.Bytes(), nil
}

// BuildNpdmFile loads a descriptor and writes the blob to outputPath. The
// blob is assembled in memory first so a failed build never leaves partial
// output behind.
func BuildNpdmFile(descriptorPath, outputPath string, behavior AcidBehavior) error {
	n, err := LoadNpdm(descriptorPath)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := n.WriteNpdm(&buf, behavior); err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return err
	}
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", outputPath, buf.Len())
	}
	return nil
}
