// inspect.go - parse a built NPDM and print its section layout
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
)

type sectionRow struct {
	name   string
	offset uint32
	size   uint32
}

// inspectNpdm reads an NPDM file, re-derives every section boundary from
// the header fields alone and prints them as a table.
func inspectNpdm(path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var meta metaHeader
	if err := readStruct(bytes.NewReader(data), &meta); err != nil {
		return fmt.Errorf("%s: short META header: %v", path, err)
	}
	if !bytes.Equal(meta.Magic[:], []byte("META")) {
		return fmt.Errorf("%s: bad META magic %q", path, meta.Magic)
	}

	name := string(bytes.TrimRight(meta.Name[:], "\x00"))
	fmt.Fprintf(out, "%s: %q, %d bytes\n", path, name, len(data))

	rows := []sectionRow{
		{"META header", 0, metaHeaderSize},
		{"ACID container", meta.AcidOffset, meta.AcidSize},
	}

	acidEnd := int(meta.AcidOffset) + int(meta.AcidSize)
	if acidEnd <= len(data) && meta.AcidSize >= acidSignatureSize+acidHeaderSize {
		var acid acidHeader
		if err := readStruct(bytes.NewReader(data[meta.AcidOffset+acidSignatureSize:]), &acid); err == nil &&
			bytes.Equal(acid.Magic[:], []byte("ACID")) {
			rows = append(rows,
				sectionRow{"  ACID signature", meta.AcidOffset, acidSignatureSize},
				sectionRow{"  ACID header", meta.AcidOffset + acidSignatureSize, acidHeaderSize},
				sectionRow{"  ACID fs access control", meta.AcidOffset + acid.FsAccessControlOffset, acid.FsAccessControlSize},
				sectionRow{"  ACID service access control", meta.AcidOffset + acid.ServiceAccessControlOffset, acid.ServiceAccessControlSize},
				sectionRow{"  ACID kernel access control", meta.AcidOffset + acid.KernelAccessControlOffset, acid.KernelAccessControlSize},
			)
		}
	}

	rows = append(rows, sectionRow{"ACI0 container", meta.AciOffset, meta.AciSize})
	if int(meta.AciOffset)+int(meta.AciSize) <= len(data) && meta.AciSize >= aciHeaderSize {
		var aci aciHeader
		if err := readStruct(bytes.NewReader(data[meta.AciOffset:]), &aci); err == nil &&
			bytes.Equal(aci.Magic[:], []byte("ACI0")) {
			fmt.Fprintf(out, "program id: 0x%016X\n", aci.ProgramID)
			rows = append(rows,
				sectionRow{"  ACI0 header", meta.AciOffset, aciHeaderSize},
				sectionRow{"  ACI0 fs access control", meta.AciOffset + aci.FsAccessControlOffset, aci.FsAccessControlSize},
				sectionRow{"  ACI0 service access control", meta.AciOffset + aci.ServiceAccessControlOffset, aci.ServiceAccessControlSize},
				sectionRow{"  ACI0 kernel access control", meta.AciOffset + aci.KernelAccessControlOffset, aci.KernelAccessControlSize},
			)
		}
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Section", "Offset", "Size"})
	for _, row := range rows {
		table.Append([]string{row.name, fmt.Sprintf("0x%X", row.offset), fmt.Sprintf("0x%X", row.size)})
	}
	table.Render()
	return nil
}
