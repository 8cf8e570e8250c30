// Command godmg is a headless runner for gbcore: it loads a ROM (plus an
// optional battery save), advances the emulator for a requested number of
// frames, and writes the final frame out as a PPM image. Grounded on
// _examples/valerio-go-jeebie/cmd/jeebie/main.go's urfave/cli wiring; the
// windowed/audio/input paths it also wires are out of scope here (spec.md
// section 1).
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/corwin-hale/go-dmg/gbcore"
	"github.com/corwin-hale/go-dmg/gbcore/serial"
)

func main() {
	app := cli.NewApp()
	app.Name = "godmg"
	app.Usage = "godmg [options] <ROM file>"
	app.Description = "Headless runner for the gbcore LR35902 emulation core"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "save",
			Usage: "Path to an existing battery save file to load",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run before exiting",
			Value: 60,
		},
		cli.StringFlag{
			Name:  "out",
			Usage: "Path to write the final frame as a PPM image",
		},
		cli.StringFlag{
			Name:  "save-out",
			Usage: "Path to write cartridge RAM after the run, if battery-backed",
		},
		cli.BoolFlag{
			Name:  "printer",
			Usage: "Attach a printer-style transport that logs lines written over the serial link",
		},
		cli.StringFlag{
			Name:  "link",
			Usage: "Attach a socket transport to the given address (host:port) for the serial link",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("godmg: fatal", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("godmg: no ROM path provided")
		}
	}

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("godmg: reading ROM: %w", err)
	}

	var save []byte
	if savePath := c.String("save"); savePath != "" {
		save, err = os.ReadFile(savePath)
		if err != nil {
			return fmt.Errorf("godmg: reading save file: %w", err)
		}
	}

	emu, err := gbcore.New(rom, save)
	if err != nil {
		return fmt.Errorf("godmg: loading cartridge: %w", err)
	}

	if c.Bool("printer") {
		emu.AttachSerialTransport(serial.NewPrinterTransport())
	}
	if addr := c.String("link"); addr != "" {
		emu.AttachSerialTransport(serial.NewSocketTransport(addr))
	}

	frames := c.Int("frames")
	for n := 0; n < frames; {
		if _, done := emu.Clock(); done {
			n++
		}
	}

	if outPath := c.String("out"); outPath != "" {
		if err := writePPM(outPath, emu); err != nil {
			return fmt.Errorf("godmg: writing frame: %w", err)
		}
	}

	if saveOutPath := c.String("save-out"); saveOutPath != "" {
		snap := emu.RequestSave()
		if snap == nil {
			return errors.New("godmg: cartridge has no battery-backed RAM to save")
		}
		if err := os.WriteFile(saveOutPath, snap, 0o644); err != nil {
			return fmt.Errorf("godmg: writing save file: %w", err)
		}
	}

	return nil
}

func writePPM(path string, emu *gbcore.Emulator) error {
	fb := emu.FrameBuffer()
	rgba := fb.ToRGBA()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	const width, height = 160, 144
	if _, err := fmt.Fprintf(f, "P6\n%d %d\n255\n", width, height); err != nil {
		return err
	}
	rgb := make([]byte, 0, width*height*3)
	for i := 0; i < width*height; i++ {
		rgb = append(rgb, rgba[i*4], rgba[i*4+1], rgba[i*4+2])
	}
	_, err = f.Write(rgb)
	return err
}
