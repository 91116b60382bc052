// nxmeta compiles a JSON or YAML program-metadata descriptor into an NPDM
// binary blob (META + ACID + ACI0) and optionally signs the ACID section
// with RSA-PSS/SHA-256.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xyproto/env/v2"
)

const versionString = "nxmeta 1.0.0"

const defaultOutputFilename = "out.npdm"

// VerboseMode gates the diagnostic output on stderr.
var VerboseMode bool

func main() {
	// NOTE: Go's flag package stops parsing at the first non-flag argument,
	// so flags must come before the descriptor filename.
	var outputFlag = flag.String("o", defaultOutputFilename, "output file")
	var outputLongFlag = flag.String("output", defaultOutputFilename, "output file")
	var pemFlag = flag.String("pem", env.Str("NXMETA_PEM"), "PEM file with the RSA private key used to sign the ACID section")
	var acidFlag = flag.String("acid", "", "reuse a pre-signed ACID section from this file instead of signing")
	var infoFlag = flag.Bool("info", false, "inspect an existing NPDM file instead of building one")
	var watchFlag = flag.Bool("watch", false, "watch mode: rebuild when the descriptor changes")
	var verbose = flag.Bool("v", false, "verbose mode")
	var verboseLong = flag.Bool("verbose", false, "verbose mode")
	var versionShort = flag.Bool("V", false, "print version information and exit")
	var version = flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *version || *versionShort {
		fmt.Println(versionString)
		os.Exit(0)
	}

	VerboseMode = *verbose || *verboseLong || env.Bool("NXMETA_VERBOSE")

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: nxmeta [flags] descriptor.json\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	input := args[0]

	if *infoFlag {
		if err := inspectNpdm(input, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Use whichever output flag was specified (prefer the short form if
	// both are given).
	output := defaultOutputFilename
	if *outputLongFlag != defaultOutputFilename {
		output = *outputLongFlag
	}
	if *outputFlag != defaultOutputFilename {
		output = *outputFlag
	}

	if *pemFlag != "" && *acidFlag != "" {
		fmt.Fprintf(os.Stderr, "Error: -pem and -acid are mutually exclusive\n")
		os.Exit(1)
	}
	behavior := AcidBehavior{PemPath: *pemFlag, AcidPath: *acidFlag}

	build := func() bool {
		if err := BuildNpdmFile(input, output, behavior); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false
		}
		return true
	}

	ok := build()
	if !*watchFlag {
		if !ok {
			os.Exit(1)
		}
		return
	}

	// Watch mode keeps running through failed rebuilds; the next edit may
	// fix the descriptor.
	watcher, err := newDescriptorWatcher(input, func() {
		fmt.Fprintf(os.Stderr, "%s changed, rebuilding\n", input)
		build()
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer watcher.Close()
	fmt.Fprintf(os.Stderr, "Watching %s (output: %s)\n", input, output)
	watcher.Watch()
}
