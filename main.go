// main.go - Emulator entry point

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

const versionString = "rv32emu 1.0.0"

func usage(out io.Writer) {
	fmt.Fprintln(out, "Usage: rv32emu [-h|--help] [-v|--version] [-d|--debug] [-m SIZE] [-f FLASH] BINARY")
	fmt.Fprintln(out, "  -h, --help      show this message")
	fmt.Fprintln(out, "  -v, --version   show version")
	fmt.Fprintln(out, "  -d, --debug     enable the machine monitor")
	fmt.Fprintln(out, "  -m SIZE         RAM size, decimal with optional k/m suffix (default 64k)")
	fmt.Fprintln(out, "  -f FLASH        map a flash image at 0x90020000")
	fmt.Fprintln(out, "  BINARY          raw or hex-text boot image, loaded at 0x00001000")
}

func main() {
	var (
		showHelp    bool
		showVersion bool
		debugMode   bool
		memSize     string
		flashFile   string
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&showHelp, "h", false, "show help")
	flagSet.BoolVar(&showHelp, "help", false, "show help")
	flagSet.BoolVar(&showVersion, "v", false, "show version")
	flagSet.BoolVar(&showVersion, "version", false, "show version")
	flagSet.BoolVar(&debugMode, "d", false, "enable debugger")
	flagSet.BoolVar(&debugMode, "debug", false, "enable debugger")
	flagSet.StringVar(&memSize, "m", "64k", "RAM size")
	flagSet.StringVar(&flashFile, "f", "", "flash image")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		usage(os.Stderr)
		os.Exit(1)
	}
	if showHelp {
		usage(os.Stdout)
		return
	}
	if showVersion {
		fmt.Println(versionString)
		return
	}
	if flagSet.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one BINARY argument")
		usage(os.Stderr)
		os.Exit(1)
	}

	ramSize, err := ParseMemSize(memSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	image, err := LoadImage(flagSet.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot load %s: %v\n", flagSet.Arg(0), err)
		os.Exit(1)
	}

	var flashImage []byte
	if flashFile != "" {
		flashImage, err = LoadImage(flashFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot load %s: %v\n", flashFile, err)
			os.Exit(1)
		}
	}

	machine, err := NewMachine(MachineConfig{
		RAMSize:    ramSize,
		ROMImage:   image,
		FlashImage: flashImage,
		Debug:      debugMode,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(machine.Run())
}
