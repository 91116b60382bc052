// kernelcap.go - kernel capability descriptors and their 32-bit word encoding
//
// Every capability encodes to one or more 32-bit words carrying a unary type
// tag in the low bits: the tag is a run of consecutive 1-bits terminated by
// a 0-bit, and the payload fields live strictly above that terminating zero.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// setBits returns w with the bit range [lo,hi) replaced by val. A value
// that does not fit the range is an internal invariant violation.
func setBits(w uint32, lo, hi uint, val uint32) uint32 {
	mask := uint32(1)<<(hi-lo) - 1
	if val&^mask != 0 {
		panic(fmt.Sprintf("field value %#x does not fit in bits %d..%d", val, lo, hi))
	}
	return w&^(mask<<lo) | val<<lo
}

// setBit returns w with bit n set to on.
func setBit(w uint32, n uint, on bool) uint32 {
	if on {
		return w | 1<<n
	}
	return w &^ (1 << n)
}

// KernelCapability is one permission grant embedded in the output blob.
// Encode is a pure function of the capability: calling it twice must yield
// identical words.
type KernelCapability interface {
	Encode() ([]uint32, error)
}

// ThreadInfoCap bounds thread priorities and usable cores. Priority 0 is
// the highest.
type ThreadInfoCap struct {
	HighestPriority uint8
	LowestPriority  uint8
	MinCoreNumber   uint8
	MaxCoreNumber   uint8
}

func (c *ThreadInfoCap) Encode() ([]uint32, error) {
	if c.HighestPriority > 63 || c.LowestPriority > 63 {
		return nil, invalidValue("thread_info (thread_priority)")
	}
	w := setBits(0b111, 4, 10, uint32(c.HighestPriority))
	w = setBits(w, 10, 16, uint32(c.LowestPriority))
	w = setBits(w, 16, 24, uint32(c.MinCoreNumber))
	w = setBits(w, 24, 32, uint32(c.MaxCoreNumber))
	return []uint32{w}, nil
}

// System-call identifiers are partitioned into 6 buckets of 24 consecutive
// ids, so anything above 143 cannot be represented and is rejected instead
// of silently indexing outside the bucket table.
const (
	systemCallBuckets = 6
	maxSystemCallID   = systemCallBuckets*24 - 1
)

// SystemCallsCap enables a set of system calls by id.
type SystemCallsCap struct {
	IDs []uint32
}

func (c *SystemCallsCap) Encode() ([]uint32, error) {
	return encodeSystemCalls(c.IDs)
}

// encodeSystemCalls builds one mask word per bucket (tag width 4, bucket
// index in bits 29..32, one payload bit per id at (id%24)+5) and drops every
// bucket that received no bit, preserving the order of the rest.
func encodeSystemCalls(ids []uint32) ([]uint32, error) {
	masks := make([]uint32, systemCallBuckets)
	used := make([]bool, systemCallBuckets)
	for i := range masks {
		masks[i] = setBits(0b1111, 29, 32, uint32(i))
	}
	for _, id := range ids {
		if id > maxSystemCallID {
			return nil, invalidValue("system call id %d (valid range is 0..%d)", id, maxSystemCallID)
		}
		bucket := id / 24
		masks[bucket] = setBit(masks[bucket], uint(id%24)+5, true)
		used[bucket] = true
	}
	words := make([]uint32, 0, systemCallBuckets)
	for i, mask := range masks {
		if used[i] {
			words = append(words, mask)
		}
	}
	return words, nil
}

// MemoryMapCap maps a memory range into the process. It encodes as a pair
// of words: address plus read-only flag, then size plus io flag.
type MemoryMapCap struct {
	Address uint64
	Size    uint64
	IsRO    bool
	IsIO    bool
}

func (c *MemoryMapCap) Encode() ([]uint32, error) {
	if c.Address >= 1<<24 {
		return nil, invalidValue("memory_map (address)")
	}
	if c.Size >= 1<<24 {
		return nil, invalidValue("memory_map (size)")
	}
	w1 := setBits(0b11_1111, 7, 31, uint32(c.Address))
	w1 = setBit(w1, 31, c.IsRO)
	w2 := setBits(0b11_1111, 7, 31, uint32(c.Size))
	w2 = setBit(w2, 31, c.IsIO)
	return []uint32{w1, w2}, nil
}

// IoMemoryMapCap maps a single io page by page number.
type IoMemoryMapCap struct {
	Page uint64
}

func (c *IoMemoryMapCap) Encode() ([]uint32, error) {
	if c.Page >= 1<<24 {
		return nil, invalidValue("io_memory_map (page)")
	}
	return []uint32{setBits(0b111_1111, 8, 32, uint32(c.Page))}, nil
}

// InterruptsCap enables a pair of interrupt lines.
type InterruptsCap struct {
	IRQs [2]uint16
}

func (c *InterruptsCap) Encode() ([]uint32, error) {
	if c.IRQs[0] >= 1<<10 || c.IRQs[1] >= 1<<10 {
		return nil, invalidValue("enable_interrupts (irq)")
	}
	w := setBits(0b111_1111_1111, 12, 22, uint32(c.IRQs[0]))
	w = setBits(w, 22, 32, uint32(c.IRQs[1]))
	return []uint32{w}, nil
}

// MiscParamsCap carries the program type code.
type MiscParamsCap struct {
	Type ProgramType
}

func (c *MiscParamsCap) Encode() ([]uint32, error) {
	code, ok := c.Type.value()
	if !ok {
		return nil, invalidValue("misc_params (program_type)")
	}
	return []uint32{setBits(0b1_1111_1111_1111, 14, 17, uint32(code))}, nil
}

// KernelVersionCap requires a minimum kernel version.
type KernelVersionCap struct {
	Version KernelVersion
}

func (c *KernelVersionCap) Encode() ([]uint32, error) {
	packed, ok := c.Version.value()
	if !ok {
		return nil, invalidValue("kernel_version")
	}
	return []uint32{setBits(0b11_1111_1111_1111, 15, 32, uint32(packed))}, nil
}

// HandleTableSizeCap sets the kernel handle table size.
type HandleTableSizeCap struct {
	Size uint16
}

func (c *HandleTableSizeCap) Encode() ([]uint32, error) {
	if c.Size >= 1<<10 {
		return nil, invalidValue("handle_table_size")
	}
	return []uint32{setBits(0b111_1111_1111_1111, 16, 26, uint32(c.Size))}, nil
}

// DebugFlagsCap carries the three mutually exclusive debug states.
type DebugFlagsCap struct {
	AllowDebug     bool
	ForceDebugProd bool
	ForceDebug     bool
}

func (c *DebugFlagsCap) Encode() ([]uint32, error) {
	set := 0
	for _, b := range []bool{c.AllowDebug, c.ForceDebugProd, c.ForceDebug} {
		if b {
			set++
		}
	}
	if set > 1 {
		return nil, ErrInvalidDebugFlags
	}
	w := setBit(0b1111_1111_1111_1111, 17, c.AllowDebug)
	w = setBit(w, 18, c.ForceDebugProd)
	w = setBit(w, 19, c.ForceDebug)
	return []uint32{w}, nil
}

// ProgramType accepts a numeric code in [0,2] or a case-insensitive name.
// Parse order for the descriptor form: number, then 0x hex string, then
// name string.
type ProgramType struct {
	num   uint64
	name  string
	named bool
}

func (p *ProgramType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.HasPrefix(s, "0x") {
			v, err := strconv.ParseUint(s[2:], 16, 64)
			if err != nil {
				return fmt.Errorf("bad hex string %q: %v", s, err)
			}
			*p = ProgramType{num: v}
			return nil
		}
		*p = ProgramType{name: s, named: true}
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("program_type: expected a number or a string: %v", err)
	}
	*p = ProgramType{num: v}
	return nil
}

func (p ProgramType) value() (uint16, bool) {
	if p.named {
		switch strings.ToLower(p.name) {
		case "system":
			return 0, true
		case "application":
			return 1, true
		case "applet":
			return 2, true
		}
		return 0, false
	}
	if p.num > 2 {
		return 0, false
	}
	return uint16(p.num), true
}

// KernelVersion accepts a numeric value >= 0x30 or a two-part dotted
// "major.minor" string. The packed form keeps the minor version in the low
// 4 bits and the major version in the high 12.
type KernelVersion struct {
	num   uint64
	str   string
	isStr bool
}

func (k *KernelVersion) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.HasPrefix(s, "0x") {
			v, err := strconv.ParseUint(s[2:], 16, 64)
			if err != nil {
				return fmt.Errorf("bad hex string %q: %v", s, err)
			}
			*k = KernelVersion{num: v}
			return nil
		}
		*k = KernelVersion{str: s, isStr: true}
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("kernel_version: expected a number or a string: %v", err)
	}
	*k = KernelVersion{num: v}
	return nil
}

func (k KernelVersion) value() (uint16, bool) {
	if !k.isStr {
		if k.num < 0x30 || k.num > 0xFFFF {
			return 0, false
		}
		return uint16(k.num), true
	}
	parts := strings.Split(k.str, ".")
	if len(parts) != 2 {
		return 0, false
	}
	major, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, false
	}
	minor, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, false
	}
	if minor > 0xF || major > 0xFFF {
		return 0, false
	}
	return uint16(minor | major<<4), true
}
