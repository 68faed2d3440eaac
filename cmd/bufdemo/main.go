// Command bufdemo drives a buffer through a full map/write/read cycle
// against an in-process loopback device.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/spf13/pflag"

	"github.com/gogpu/webdom"
	"github.com/gogpu/webdom/gpu"
	"github.com/gogpu/webdom/wire"
)

func main() {
	var (
		size    = pflag.Uint64("size", 64, "buffer size in bytes")
		read    = pflag.Bool("read", false, "map for reading instead of writing")
		verbose = pflag.BoolP("verbose", "v", false, "log protocol traffic")
	)
	pflag.Parse()

	if *verbose {
		webdom.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if err := run(*size, *read); err != nil {
		log.Fatal(err)
	}
}

func run(size uint64, read bool) error {
	loop := wire.NewLoopback()
	defer loop.Close()

	const (
		deviceID = wire.DeviceID(1)
		bufferID = wire.BufferID(1)
	)
	loop.CreateBuffer(bufferID, size)

	device := gpu.NewDevice(deviceID, loop)
	usage := gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc
	mode := gputypes.MapModeWrite
	if read {
		usage = gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
		mode = gputypes.MapModeRead

		// Give the read something to see.
		seed := make([]byte, size)
		for i := range seed {
			seed[i] = byte(i)
		}
		loop.SeedBuffer(bufferID, seed)
	}

	buf, err := gpu.NewBuffer(device, bufferID, &gpu.BufferDescriptor{
		Label: "bufdemo",
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return err
	}
	defer func() { _ = buf.Destroy() }()

	promise := buf.MapAsync(mode, 0, gpu.WholeSize)
	if n := loop.Flush(); n == 0 {
		return fmt.Errorf("no map traffic delivered")
	}
	if err := promise.Err(); err != nil {
		return fmt.Errorf("map failed: %w", err)
	}

	view, err := buf.GetMappedRange(0, gpu.WholeSize)
	if err != nil {
		return err
	}
	data, err := view.Bytes()
	if err != nil {
		return err
	}

	if read {
		fmt.Printf("read %d bytes: % x\n", len(data), data)
	} else {
		for i := range data {
			data[i] = byte(len(data) - i)
		}
		fmt.Printf("wrote %d bytes\n", len(data))
	}

	if err := buf.Unmap(); err != nil {
		return err
	}
	loop.Flush()

	if !read {
		fmt.Printf("device sees: % x\n", loop.Contents(bufferID))
	}
	fmt.Printf("final state: %s\n", buf.State())
	return nil
}
