// caps.go - the two descriptor surface forms of the kernel capability list
//
// A descriptor supplies kernel_capabilities either as an explicit ordered
// list of {type, value} entries or as a convenience struct with named
// fields. Both normalize to the same ordered []KernelCapability before
// encoding.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// KernelCapabilities holds the normalized capability list.
type KernelCapabilities struct {
	caps []KernelCapability
}

// List returns the capabilities in encoding order.
func (k *KernelCapabilities) List() []KernelCapability {
	return k.caps
}

func (k *KernelCapabilities) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []capabilityEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return err
		}
		k.caps = make([]KernelCapability, len(entries))
		for i := range entries {
			k.caps[i] = entries[i].cap
		}
		return nil
	}
	var vals kernelCapabilityValues
	if err := json.Unmarshal(trimmed, &vals); err != nil {
		return err
	}
	caps, err := vals.toList()
	if err != nil {
		return err
	}
	k.caps = caps
	return nil
}

// capabilityEntry is one {type, value} element of the explicit list form.
type capabilityEntry struct {
	cap KernelCapability
}

func (e *capabilityEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case "thread_info", "kernel_flags":
		var fields threadInfoFields
		if err := json.Unmarshal(raw.Value, &fields); err != nil {
			return err
		}
		e.cap = fields.capability()
	case "enable_system_calls", "syscalls":
		var calls SystemCalls
		if err := json.Unmarshal(raw.Value, &calls); err != nil {
			return err
		}
		e.cap = &SystemCallsCap{IDs: calls.IDs}
	case "memory_map", "map":
		var m memoryMapFields
		if err := json.Unmarshal(raw.Value, &m); err != nil {
			return err
		}
		e.cap = m.capability()
	case "io_memory_map", "map_page":
		var page HexOrNum
		if err := json.Unmarshal(raw.Value, &page); err != nil {
			return err
		}
		e.cap = &IoMemoryMapCap{Page: uint64(page)}
	case "enable_interrupts", "irq_pair":
		var irqs [2]uint16
		if err := json.Unmarshal(raw.Value, &irqs); err != nil {
			return err
		}
		e.cap = &InterruptsCap{IRQs: irqs}
	case "misc_params", "application_type":
		var pt ProgramType
		if err := json.Unmarshal(raw.Value, &pt); err != nil {
			return err
		}
		e.cap = &MiscParamsCap{Type: pt}
	case "kernel_version", "min_kernel_version":
		var kv KernelVersion
		if err := json.Unmarshal(raw.Value, &kv); err != nil {
			return err
		}
		e.cap = &KernelVersionCap{Version: kv}
	case "handle_table_size":
		var size uint16
		if err := json.Unmarshal(raw.Value, &size); err != nil {
			return err
		}
		e.cap = &HandleTableSizeCap{Size: size}
	case "debug_flags":
		var flags struct {
			AllowDebug     bool `json:"allow_debug"`
			ForceDebugProd bool `json:"force_debug_prod"`
			ForceDebug     bool `json:"force_debug"`
		}
		if err := json.Unmarshal(raw.Value, &flags); err != nil {
			return err
		}
		e.cap = &DebugFlagsCap{
			AllowDebug:     flags.AllowDebug,
			ForceDebugProd: flags.ForceDebugProd,
			ForceDebug:     flags.ForceDebug,
		}
	default:
		return invalidValue("kernel_capabilities.type (%s)", raw.Type)
	}
	return nil
}

// threadInfoFields accepts both spellings of each thread_info field.
type threadInfoFields struct {
	HighestPriority       *uint8 `json:"highest_priority"`
	HighestThreadPriority *uint8 `json:"highest_thread_priority"`
	LowestPriority        *uint8 `json:"lowest_priority"`
	LowestThreadPriority  *uint8 `json:"lowest_thread_priority"`
	MaxCoreNumber         *uint8 `json:"max_core_number"`
	HighestCPUID          *uint8 `json:"highest_cpu_id"`
	MinCoreNumber         *uint8 `json:"min_core_number"`
	LowestCPUID           *uint8 `json:"lowest_cpu_id"`
}

func pickU8(primary, alias *uint8) uint8 {
	if primary != nil {
		return *primary
	}
	if alias != nil {
		return *alias
	}
	return 0
}

func (f *threadInfoFields) capability() *ThreadInfoCap {
	return &ThreadInfoCap{
		HighestPriority: pickU8(f.HighestPriority, f.HighestThreadPriority),
		LowestPriority:  pickU8(f.LowestPriority, f.LowestThreadPriority),
		MinCoreNumber:   pickU8(f.MinCoreNumber, f.LowestCPUID),
		MaxCoreNumber:   pickU8(f.MaxCoreNumber, f.HighestCPUID),
	}
}

// memoryMapFields is the descriptor form of one memory map entry.
type memoryMapFields struct {
	Address HexOrNum `json:"address"`
	Size    HexOrNum `json:"size"`
	IsRO    bool     `json:"is_ro"`
	IsIO    bool     `json:"is_io"`
}

func (m *memoryMapFields) capability() *MemoryMapCap {
	return &MemoryMapCap{
		Address: uint64(m.Address),
		Size:    uint64(m.Size),
		IsRO:    m.IsRO,
		IsIO:    m.IsIO,
	}
}

// SystemCalls is the enable_system_calls payload: either an object mapping
// call names to ids (only the ids are used) or a list of call names.
type SystemCalls struct {
	IDs []uint32
}

func (s *SystemCalls) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var byName map[string]HexOrNum
		if err := json.Unmarshal(trimmed, &byName); err != nil {
			return err
		}
		ids := make([]uint32, 0, len(byName))
		for _, id := range byName {
			ids = append(ids, uint32(id))
		}
		s.IDs = ids
		return nil
	}
	var names []string
	if err := json.Unmarshal(trimmed, &names); err != nil {
		return fmt.Errorf("enable_system_calls: expected a name-to-id object or a list of names: %v", err)
	}
	ids := make([]uint32, len(names))
	for i, name := range names {
		id, ok := lookupSystemCall(name)
		if !ok {
			return invalidValue("system call name %q", name)
		}
		ids[i] = id
	}
	s.IDs = ids
	return nil
}

// EnabledSystemCall is one element of the convenience struct's call list:
// a number, a 0x hex string, or a call name, probed in that order.
type EnabledSystemCall uint32

func (e *EnabledSystemCall) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.HasPrefix(s, "0x") {
			v, err := strconv.ParseUint(s[2:], 16, 32)
			if err != nil {
				return fmt.Errorf("bad hex string %q: %v", s, err)
			}
			*e = EnabledSystemCall(v)
			return nil
		}
		id, ok := lookupSystemCall(s)
		if !ok {
			return invalidValue("system call name %q", s)
		}
		*e = EnabledSystemCall(id)
		return nil
	}
	var v uint32
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("enable_system_calls: expected a number or a string: %v", err)
	}
	*e = EnabledSystemCall(v)
	return nil
}

// kernelCapabilityValues is the convenience form. toList normalizes it into
// the fixed order: thread info, system calls, memory maps, io memory maps,
// interrupts, misc params, kernel version, debug flags.
type kernelCapabilityValues struct {
	HighestPriority   uint8               `json:"highest_priority"`
	LowestPriority    uint8               `json:"lowest_priority"`
	MaxCoreNumber     uint8               `json:"max_core_number"`
	MinCoreNumber     uint8               `json:"min_core_number"`
	EnableSystemCalls []EnabledSystemCall `json:"enable_system_calls"`
	MemoryMaps        []memoryMapFields   `json:"memory_maps"`
	IoMemoryMaps      []HexOrNum          `json:"io_memory_maps"`
	EnableInterrupts  [][2]uint16         `json:"enable_interrupts"`
	ProgramType       *ProgramType        `json:"program_type"`
	KernelVersion     *KernelVersion      `json:"kernel_version"`
	AllowDebug        *bool               `json:"allow_debug"`
	ForceDebugProd    *bool               `json:"force_debug_prod"`
	ForceDebug        *bool               `json:"force_debug"`
}

func (v *kernelCapabilityValues) toList() ([]KernelCapability, error) {
	caps := []KernelCapability{
		&ThreadInfoCap{
			HighestPriority: v.HighestPriority,
			LowestPriority:  v.LowestPriority,
			MinCoreNumber:   v.MinCoreNumber,
			MaxCoreNumber:   v.MaxCoreNumber,
		},
	}

	ids := make([]uint32, len(v.EnableSystemCalls))
	for i, call := range v.EnableSystemCalls {
		ids[i] = uint32(call)
	}
	caps = append(caps, &SystemCallsCap{IDs: ids})

	for i := range v.MemoryMaps {
		caps = append(caps, v.MemoryMaps[i].capability())
	}
	for _, page := range v.IoMemoryMaps {
		caps = append(caps, &IoMemoryMapCap{Page: uint64(page)})
	}
	for _, irqs := range v.EnableInterrupts {
		caps = append(caps, &InterruptsCap{IRQs: irqs})
	}
	if v.ProgramType != nil {
		caps = append(caps, &MiscParamsCap{Type: *v.ProgramType})
	}
	if v.KernelVersion != nil {
		caps = append(caps, &KernelVersionCap{Version: *v.KernelVersion})
	}
	if v.AllowDebug != nil || v.ForceDebugProd != nil || v.ForceDebug != nil {
		caps = append(caps, &DebugFlagsCap{
			AllowDebug:     v.AllowDebug != nil && *v.AllowDebug,
			ForceDebugProd: v.ForceDebugProd != nil && *v.ForceDebugProd,
			ForceDebug:     v.ForceDebug != nil && *v.ForceDebug,
		})
	}
	return caps, nil
}
