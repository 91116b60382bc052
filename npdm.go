// npdm.go - the program-metadata descriptor model and its JSON/YAML loader
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"
)

// HexOrNum is a numeric descriptor field that accepts either a bare JSON
// integer or a string with a mandatory "0x" prefix. Any other string form
// is a parse error.
type HexOrNum uint64

func (h *HexOrNum) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if !strings.HasPrefix(s, "0x") {
			return fmt.Errorf("expected an integer or a 0x-prefixed hex string, got %q", s)
		}
		v, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return fmt.Errorf("bad hex string %q: %v", s, err)
		}
		*h = HexOrNum(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("expected an integer or a 0x-prefixed hex string: %v", err)
	}
	*h = HexOrNum(v)
	return nil
}

// FsAccessControl carries the filesystem permission bitmask. The descriptor
// may spell the field "flags" or "permissions".
type FsAccessControl struct {
	Flags HexOrNum
}

func (f *FsAccessControl) UnmarshalJSON(data []byte) error {
	var raw struct {
		Flags       *HexOrNum `json:"flags"`
		Permissions *HexOrNum `json:"permissions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Flags != nil:
		f.Flags = *raw.Flags
	case raw.Permissions != nil:
		f.Flags = *raw.Permissions
	default:
		return &MissingFieldError{Field: "fs_access_control.flags"}
	}
	return nil
}

// ServiceAccessControl is the combined form of the two service-name lists.
type ServiceAccessControl struct {
	AccessedServices []string `json:"accessed_services"`
	HostedServices   []string `json:"hosted_services"`
}

// Npdm is the in-memory descriptor. It is immutable once loaded; the
// encoding pipeline only reads it.
type Npdm struct {
	// META fields
	Name                           string    `json:"name"`
	ProductCode                    string    `json:"product_code"`
	SignatureKeyGeneration         *uint32   `json:"signature_key_generation"`
	MainThreadStackSize            HexOrNum  `json:"main_thread_stack_size"`
	MainThreadPriority             uint8     `json:"main_thread_priority"`
	MainThreadCoreNumber           uint8     `json:"main_thread_core_number"`
	SystemResourceSize             *uint32   `json:"system_resource_size"`
	Version                        *uint32   `json:"version"`
	AddressSpaceType               uint8     `json:"address_space_type"`
	Is64Bit                        bool      `json:"is_64_bit"`
	OptimizeMemoryAllocation       *bool     `json:"optimize_memory_allocation"`
	DisableDeviceAddressSpaceMerge *bool     `json:"disable_device_address_space_merge"`

	// ACID fields
	IsProduction        *bool     `json:"is_production"`
	UnqualifiedApproval *bool     `json:"unqualified_approval"`
	MemoryRegion        uint32    `json:"memory_region"`
	ProgramIDRangeMin   *HexOrNum `json:"program_id_range_min"`
	ProgramIDRangeMax   *HexOrNum `json:"program_id_range_max"`

	// ACI0 fields
	ProgramID HexOrNum `json:"program_id"`

	// FAC
	FsAccessControl FsAccessControl `json:"fs_access_control"`

	// SAC
	AccessedServices     *[]string             `json:"accessed_services"`
	HostedServices       *[]string             `json:"hosted_services"`
	ServiceAccessControl *ServiceAccessControl `json:"service_access_control"`

	// KAC
	KernelCapabilities KernelCapabilities `json:"kernel_capabilities"`

	// Other
	DeveloperKey string `json:"developer_key"`
}

// topLevelAliases maps the alternative descriptor spellings onto the
// canonical field names before decoding. A canonical key present in the
// document wins over its alias.
var topLevelAliases = map[string]string{
	"default_cpu_id":     "main_thread_core_number",
	"process_category":   "version",
	"is_retail":          "is_production",
	"pool_partition":     "memory_region",
	"title_id_range_min": "program_id_range_min",
	"title_id_range_max": "program_id_range_max",
	"title_id":           "program_id",
	"filesystem_access":  "fs_access_control",
	"service_access":     "accessed_services",
	"service_host":       "hosted_services",
}

func (n *Npdm) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for alias, canonical := range topLevelAliases {
		raw, ok := fields[alias]
		if !ok {
			continue
		}
		if _, dup := fields[canonical]; !dup {
			fields[canonical] = raw
		}
		delete(fields, alias)
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	type plain Npdm
	var p plain
	if err := json.Unmarshal(merged, &p); err != nil {
		return err
	}
	*n = Npdm(p)
	return nil
}

// serviceLists resolves the two service-name lists, preferring the combined
// service_access_control object over the split fields. A side that is
// supplied by neither form is a MissingFieldError, not a crash.
func (n *Npdm) serviceLists() (accessed, hosted []string, err error) {
	if n.ServiceAccessControl != nil {
		return n.ServiceAccessControl.AccessedServices, n.ServiceAccessControl.HostedServices, nil
	}
	if n.AccessedServices == nil {
		return nil, nil, &MissingFieldError{Field: "accessed_services"}
	}
	if n.HostedServices == nil {
		return nil, nil, &MissingFieldError{Field: "hosted_services"}
	}
	return *n.AccessedServices, *n.HostedServices, nil
}

// LoadNpdm reads and decodes a descriptor file. YAML descriptors are
// converted to JSON first so both formats share one decode path.
func LoadNpdm(path string) (*Npdm, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var n Npdm
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &n)
	default:
		err = json.Unmarshal(data, &n)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &n, nil
}
