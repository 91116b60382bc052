package main

import (
	"encoding/json"
	"errors"
	"testing"
)

// TestHexOrNumForms verifies the number-or-hex-string field contract
func TestHexOrNumForms(t *testing.T) {
	var h HexOrNum
	if err := json.Unmarshal([]byte(`4096`), &h); err != nil || h != 4096 {
		t.Errorf("number form: got %v, %v", h, err)
	}
	if err := json.Unmarshal([]byte(`"0x1F"`), &h); err != nil || h != 0x1F {
		t.Errorf("hex string form: got %v, %v", h, err)
	}
	if err := json.Unmarshal([]byte(`"1F"`), &h); err == nil {
		t.Errorf("expected error for string without 0x prefix")
	}
	if err := json.Unmarshal([]byte(`"0xZZ"`), &h); err == nil {
		t.Errorf("expected error for bad hex digits")
	}
}

// TestTopLevelAliases verifies the alternative descriptor spellings
func TestTopLevelAliases(t *testing.T) {
	doc := `{
		"name": "aliased",
		"title_id": "0x0100000000010000",
		"main_thread_stack_size": "0x4000",
		"main_thread_priority": 44,
		"default_cpu_id": 2,
		"process_category": 7,
		"address_space_type": 1,
		"is_64_bit": true,
		"pool_partition": 2,
		"filesystem_access": {"permissions": "0xF"},
		"service_access": ["sm:"],
		"service_host": [],
		"kernel_capabilities": []
	}`
	var n Npdm
	if err := json.Unmarshal([]byte(doc), &n); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if n.ProgramID != 0x0100000000010000 {
		t.Errorf("title_id alias: got %#x", uint64(n.ProgramID))
	}
	if n.MainThreadCoreNumber != 2 {
		t.Errorf("default_cpu_id alias: got %d", n.MainThreadCoreNumber)
	}
	if n.Version == nil || *n.Version != 7 {
		t.Errorf("process_category alias: got %v", n.Version)
	}
	if n.MemoryRegion != 2 {
		t.Errorf("pool_partition alias: got %d", n.MemoryRegion)
	}
	if n.FsAccessControl.Flags != 0xF {
		t.Errorf("filesystem_access.permissions alias: got %#x", uint64(n.FsAccessControl.Flags))
	}
	accessed, hosted, err := n.serviceLists()
	if err != nil {
		t.Fatalf("serviceLists failed: %v", err)
	}
	if len(accessed) != 1 || accessed[0] != "sm:" || len(hosted) != 0 {
		t.Errorf("service alias lists: got %v / %v", accessed, hosted)
	}
}

// TestMissingServiceLists verifies the structured MissingFieldError instead
// of a crash
func TestMissingServiceLists(t *testing.T) {
	var n Npdm
	if err := json.Unmarshal([]byte(`{"name": "x", "kernel_capabilities": []}`), &n); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	_, _, err := n.serviceLists()
	var mfe *MissingFieldError
	if !errors.As(err, &mfe) {
		t.Fatalf("Expected MissingFieldError, got %v", err)
	}
	if mfe.Field != "accessed_services" {
		t.Errorf("Expected accessed_services, got %q", mfe.Field)
	}

	var n2 Npdm
	if err := json.Unmarshal([]byte(`{"name": "x", "accessed_services": [], "kernel_capabilities": []}`), &n2); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	_, _, err = n2.serviceLists()
	if !errors.As(err, &mfe) || mfe.Field != "hosted_services" {
		t.Fatalf("Expected MissingFieldError for hosted_services, got %v", err)
	}
}

// TestCombinedServiceAccessControl verifies the combined object wins over
// missing split lists
func TestCombinedServiceAccessControl(t *testing.T) {
	doc := `{
		"name": "x",
		"service_access_control": {"accessed_services": ["a"], "hosted_services": ["b"]},
		"kernel_capabilities": []
	}`
	var n Npdm
	if err := json.Unmarshal([]byte(doc), &n); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	accessed, hosted, err := n.serviceLists()
	if err != nil {
		t.Fatalf("serviceLists failed: %v", err)
	}
	if len(accessed) != 1 || accessed[0] != "a" || len(hosted) != 1 || hosted[0] != "b" {
		t.Errorf("combined form: got %v / %v", accessed, hosted)
	}
}

// TestExplicitCapabilityList verifies the {type, value} list form with its
// alias type names
func TestExplicitCapabilityList(t *testing.T) {
	doc := `[
		{"type": "kernel_flags", "value": {"highest_thread_priority": 0, "lowest_thread_priority": 63, "lowest_cpu_id": 0, "highest_cpu_id": 3}},
		{"type": "syscalls", "value": {"svcSetHeapSize": "0x01", "svcCloseHandle": "0x16"}},
		{"type": "map", "value": {"address": "0x123456", "size": "0x1000", "is_ro": true, "is_io": false}},
		{"type": "map_page", "value": "0xABCDEF"},
		{"type": "irq_pair", "value": [63, 64]},
		{"type": "application_type", "value": "system"},
		{"type": "min_kernel_version", "value": "3.0"},
		{"type": "handle_table_size", "value": 512},
		{"type": "debug_flags", "value": {"allow_debug": true}}
	]`
	var caps KernelCapabilities
	if err := json.Unmarshal([]byte(doc), &caps); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	list := caps.List()
	if len(list) != 9 {
		t.Fatalf("Expected 9 capabilities, got %d", len(list))
	}
	if ti, ok := list[0].(*ThreadInfoCap); !ok || ti.LowestPriority != 63 || ti.MaxCoreNumber != 3 {
		t.Errorf("thread info: got %#v", list[0])
	}
	sc, ok := list[1].(*SystemCallsCap)
	if !ok || len(sc.IDs) != 2 {
		t.Errorf("syscalls: got %#v", list[1])
	}
	if _, ok := list[8].(*DebugFlagsCap); !ok {
		t.Errorf("debug flags: got %#v", list[8])
	}
}

// TestUnknownCapabilityType verifies that a bogus type tag is rejected
func TestUnknownCapabilityType(t *testing.T) {
	var caps KernelCapabilities
	err := json.Unmarshal([]byte(`[{"type": "warp_drive", "value": 1}]`), &caps)
	var ive *InvalidValueError
	if !errors.As(err, &ive) {
		t.Fatalf("Expected InvalidValueError, got %v", err)
	}
}

// TestConvenienceCapabilityOrder verifies the fixed normalization order of
// the struct form
func TestConvenienceCapabilityOrder(t *testing.T) {
	doc := `{
		"highest_priority": 0,
		"lowest_priority": 63,
		"max_core_number": 3,
		"min_core_number": 0,
		"enable_system_calls": [1, "0x16", "SetMemoryAttribute"],
		"memory_maps": [{"address": "0x1000", "size": "0x100", "is_ro": false, "is_io": false}],
		"io_memory_maps": ["0x2000"],
		"enable_interrupts": [[5, 6]],
		"program_type": "applet",
		"kernel_version": "0x30",
		"allow_debug": true
	}`
	var caps KernelCapabilities
	if err := json.Unmarshal([]byte(doc), &caps); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	list := caps.List()
	wantTypes := []string{"thread_info", "syscalls", "memory_map", "io_memory_map", "interrupts", "misc_params", "kernel_version", "debug_flags"}
	if len(list) != len(wantTypes) {
		t.Fatalf("Expected %d capabilities, got %d", len(wantTypes), len(list))
	}

	sc, ok := list[1].(*SystemCallsCap)
	if !ok {
		t.Fatalf("Expected syscalls second, got %#v", list[1])
	}
	want := []uint32{0x01, 0x16, 0x03}
	for i, id := range want {
		if sc.IDs[i] != id {
			t.Errorf("syscall %d: expected %#x, got %#x", i, id, sc.IDs[i])
		}
	}

	checks := []bool{
		func() bool { _, ok := list[0].(*ThreadInfoCap); return ok }(),
		true,
		func() bool { _, ok := list[2].(*MemoryMapCap); return ok }(),
		func() bool { _, ok := list[3].(*IoMemoryMapCap); return ok }(),
		func() bool { _, ok := list[4].(*InterruptsCap); return ok }(),
		func() bool { _, ok := list[5].(*MiscParamsCap); return ok }(),
		func() bool { _, ok := list[6].(*KernelVersionCap); return ok }(),
		func() bool { _, ok := list[7].(*DebugFlagsCap); return ok }(),
	}
	for i, ok := range checks {
		if !ok {
			t.Errorf("position %d: expected %s, got %#v", i, wantTypes[i], list[i])
		}
	}
}

// TestUnknownSystemCallName verifies that misspelled syscall names fail at
// parse time
func TestUnknownSystemCallName(t *testing.T) {
	var calls SystemCalls
	err := json.Unmarshal([]byte(`["SetHeapSize", "SetHeepSize"]`), &calls)
	var ive *InvalidValueError
	if !errors.As(err, &ive) {
		t.Fatalf("Expected InvalidValueError, got %v", err)
	}
}
