// main.go - demonstration entry point wiring Core to a window and audio device
//
// This binary is the thin host around the synchronous core: it loads ROM
// and media images from disk, builds a Core, attaches the oto/ebiten
// backends (or their headless stand-ins), and hands control to the chosen
// backend's Run loop. None of this wiring lives inside core.go itself,
// which stays free of host-OS concerns per its own contract.

package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"
)

func boilerPlate() {
	fmt.Println("cpccore - a cycle-accurate Amstrad CPC core")
	fmt.Println("https://github.com/gocpc/cpccore")
}

func loadFile(path string) []byte {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cpccore: %v\n", err)
		os.Exit(1)
	}
	return data
}

func main() {
	lowerROM := flag.String("os-rom", "", "path to the lower (OS) ROM image")
	basicROM := flag.String("basic-rom", "", "path to the upper ROM image for slot 0 (BASIC)")
	amsdosROM := flag.String("amsdos-rom", "", "path to the upper ROM image for slot 7 (AMSDOS)")
	tapePath := flag.String("tape", "", "path to a ZXTape!/CDT tape image")
	disc0Path := flag.String("disc0", "", "path to a DSK image for drive A")
	disc1Path := flag.String("disc1", "", "path to a DSK image for drive B")
	sampleRate := flag.Int("rate", 44100, "audio sample rate in Hz")
	headless := flag.Bool("headless", false, "run without an audio device (the window backend is chosen at build time by the headless build tag)")
	frames := flag.Int("frames", 0, "in a build with the headless tag, number of frames to run (0 = forever); the window backend ignores it")
	flag.Parse()

	if term.IsTerminal(int(os.Stdout.Fd())) {
		boilerPlate()
	}

	core := NewCore()
	core.SetFrequency(*sampleRate)

	if rom := loadFile(*lowerROM); rom != nil {
		core.SetLowerRom(rom)
		core.EnableLowerROM(true)
	}
	if rom := loadFile(*basicROM); rom != nil {
		core.SetUpperRom(0, rom)
		core.EnableUpperROM(true)
	}
	if rom := loadFile(*amsdosROM); rom != nil {
		core.SetUpperRom(7, rom)
	}
	if tape := loadFile(*tapePath); tape != nil {
		if !core.LoadTape(tape) {
			fmt.Fprintf(os.Stderr, "cpccore: %q is not a recognized tape image\n", *tapePath)
			os.Exit(1)
		}
	}
	if disc := loadFile(*disc0Path); disc != nil {
		if !core.LoadDisc(0, disc) {
			fmt.Fprintf(os.Stderr, "cpccore: %q is not a recognized disc image\n", *disc0Path)
			os.Exit(1)
		}
	}
	if disc := loadFile(*disc1Path); disc != nil {
		if !core.LoadDisc(1, disc) {
			fmt.Fprintf(os.Stderr, "cpccore: %q is not a recognized disc image\n", *disc1Path)
			os.Exit(1)
		}
	}

	var player *OtoPlayer
	if !*headless {
		var err error
		player, err = NewOtoPlayer(*sampleRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cpccore: failed to initialize audio: %v\n", err)
			os.Exit(1)
		}
		player.SetupPlayer(core)
		player.Start()
		defer player.Close()
	}

	video := NewEbitenOutput(core)
	video.Start()

	if err := video.Run(*frames); err != nil {
		fmt.Fprintf(os.Stderr, "cpccore: %v\n", err)
		os.Exit(1)
	}
}
