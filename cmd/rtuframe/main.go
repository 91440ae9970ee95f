// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

// Command rtuframe builds Modbus RTU request frames and payload byte groups,
// either one-off from flags, in batch from CSV or YAML files, or as an HTTP
// service.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	modbus "github.com/hootrhino/rtuframe"
)

const usage = `usage: rtuframe <command> [flags]

commands:
  build    build one request frame
  convert  convert a number to payload bytes
  batch    build every frame and conversion in a .csv or .yaml file
  serve    run the HTTP API
`

// errBatchFailed marks a batch with at least one failing item.
var errBatchFailed = errors.New("batch finished with errors")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "build":
		err = runBuild(args[1:], stdout, stderr)
	case "convert":
		err = runConvert(args[1:], stdout, stderr)
	case "batch":
		err = runBatch(args[1:], stdout, stderr)
	case "serve":
		err = runServe(args[1:], stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errBatchFailed):
		return 1
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runBuild(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("build", stderr)
	unit := fs.Int("unit", 1, "unit address (1-247)")
	fc := fs.String("fc", "03", "function code in hex (01-06, 0F, 10)")
	start := fs.String("start", "0000", "start address, 1-4 hex digits")
	payload := fs.String("payload", "", "quantity (reads), FF/00 (coil), or hex bytes (writes)")
	dump := fs.Bool("dump", false, "print an annotated frame dump")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := modbus.FrameRequest{UnitAddress: *unit, StartAddress: *start, Payload: *payload}
	code, parseErr := modbus.ParseFunctionCode(*fc)
	req.Function = code
	frame, err := modbus.BuildFrame(req)
	if parseErr != nil && modbus.ErrorField(err) == modbus.FieldFunctionCode {
		err = parseErr
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, frame.Hex())
	if *dump {
		fmt.Fprintln(stdout)
		fmt.Fprint(stdout, modbus.NewRTUPackager().DumpFrame(frame.Bytes))
	}
	return nil
}

func runConvert(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("convert", stderr)
	value := fs.Float64("value", 0, "value to convert")
	format := fs.String("format", string(modbus.FormatUint16), "uint16, int16, uint32, int32 or float32")
	order := fs.String("order", string(modbus.OrderABCD), `byte order: "AB CD", "DC BA", "BA DC" or "CD AB"`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	out, err := modbus.Convert(modbus.ConversionRequest{
		Value:  *value,
		Format: modbus.DataFormat(*format),
		Order:  modbus.ByteOrder(*order),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, modbus.FormatHex(out))
	return nil
}

func runBatch(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("batch", stderr)
	file := fs.String("file", "", "batch file (.csv or .yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("batch: -file is required")
	}

	b, err := loadBatch(*file)
	if err != nil {
		return err
	}
	res := modbus.RunBatch(modbus.NewFrameBuilder(), b)

	for i, r := range res.Frames {
		if r.Err != nil {
			fmt.Fprintf(stderr, "frame %d: %v\n", i+1, r.Err)
			continue
		}
		line := r.Frame.Hex()
		if r.Item.Comment != "" {
			line += "  # " + r.Item.Comment
		}
		fmt.Fprintln(stdout, line)
	}
	for i, r := range res.Conversions {
		if r.Err != nil {
			fmt.Fprintf(stderr, "conversion %d: %v\n", i+1, r.Err)
			continue
		}
		fmt.Fprintf(stdout, "%v %s %s: %s\n", r.Request.Value, r.Request.Format, r.Request.Order, modbus.FormatHex(r.Bytes))
	}

	if n := res.Failed(); n > 0 {
		fmt.Fprintf(stderr, "%d of %d items failed\n", n, len(res.Frames)+len(res.Conversions))
		return errBatchFailed
	}
	return nil
}

func loadBatch(path string) (*modbus.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		items, err := modbus.NewCSVRequestParser().ParseCSV(f)
		if err != nil {
			return nil, err
		}
		return &modbus.Batch{Frames: items}, nil
	case ".yaml", ".yml":
		return modbus.LoadBatchYAML(f)
	}
	return nil, fmt.Errorf("unsupported batch file %q: want .csv, .yaml or .yml", path)
}
