package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// TestServiceNameEncoding verifies the length-prefix bytes for callable and
// hostable entries
func TestServiceNameEncoding(t *testing.T) {
	table, err := encodeServiceAccess([]string{"aa"}, nil)
	if err != nil {
		t.Fatalf("encodeServiceAccess failed: %v", err)
	}
	if !bytes.Equal(table, []byte{0x01, 'a', 'a'}) {
		t.Errorf("callable: expected [01 61 61], got % x", table)
	}

	table, err = encodeServiceAccess(nil, []string{"aa"})
	if err != nil {
		t.Fatalf("encodeServiceAccess failed: %v", err)
	}
	if !bytes.Equal(table, []byte{0x81, 'a', 'a'}) {
		t.Errorf("hostable: expected [81 61 61], got % x", table)
	}
}

// TestServiceTableOrder verifies callable entries come first, each list in
// descriptor order
func TestServiceTableOrder(t *testing.T) {
	table, err := encodeServiceAccess([]string{"sm:", "fsp-srv"}, []string{"nxm"})
	if err != nil {
		t.Fatalf("encodeServiceAccess failed: %v", err)
	}
	want := []byte{0x02, 's', 'm', ':', 0x06, 'f', 's', 'p', '-', 's', 'r', 'v', 0x82, 'n', 'x', 'm'}
	if !bytes.Equal(table, want) {
		t.Errorf("expected % x, got % x", want, table)
	}
	if got := sacEncodedLen([]string{"sm:", "fsp-srv"}) + sacEncodedLen([]string{"nxm"}); got != len(table) {
		t.Errorf("sacEncodedLen mismatch: %d vs %d", got, len(table))
	}
}

// TestServiceNameLengthBounds verifies the 1..8 byte name constraint
func TestServiceNameLengthBounds(t *testing.T) {
	if _, err := encodeServiceAccess([]string{"12345678"}, nil); err != nil {
		t.Errorf("8-byte name: unexpected error %v", err)
	}

	var ive *InvalidValueError
	_, err := encodeServiceAccess([]string{"123456789"}, nil)
	if !errors.As(err, &ive) {
		t.Fatalf("9-byte name: expected InvalidValueError, got %v", err)
	}
	if !strings.HasPrefix(ive.Field, "accessed_services.") {
		t.Errorf("expected accessed_services field, got %q", ive.Field)
	}

	_, err = encodeServiceAccess(nil, []string{""})
	if !errors.As(err, &ive) {
		t.Fatalf("empty name: expected InvalidValueError, got %v", err)
	}
	if !strings.HasPrefix(ive.Field, "hosted_services.") {
		t.Errorf("expected hosted_services field, got %q", ive.Field)
	}
}
