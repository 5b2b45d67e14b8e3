// cmd/mlx90614/main.go
//
// Usage:
//
//	mlx90614 [flags] read|emissivity [value]|id|reg <hex>|watch [-config f] [-mqtt url]|shell
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"mlx90614-go/drivers/mlx90614"
	"mlx90614-go/drivers/mlx90614/pal"
)

var (
	transport = flag.String("transport", "sim", "Bus transport: sim, mcp2221a or periph")
	busName   = flag.String("bus", "", "mcp2221a: bridge index; periph: bus name (e.g. /dev/i2c-1, \"\" = first)")
	addrFlag  = flag.String("addr", "0x5a", "Sensor 7-bit I2C address")
	autoInit  = flag.Bool("auto-init", true, "Bring the bus up before the first transaction")
	verifyPEC = flag.Bool("verify-pec", true, "Check the PEC byte of every read")
)

type closer interface{ Close() error }

// openBus returns the selected transport, not yet initialised.
func openBus(addr uint16, log *logrus.Entry) (mlx90614.Bus, string, error) {
	switch *transport {
	case "sim":
		return pal.NewSim(addr), "sim", nil
	case "mcp2221a":
		var idx uint64
		if *busName != "" {
			var err error
			if idx, err = strconv.ParseUint(*busName, 10, 8); err != nil {
				return nil, "", fmt.Errorf("invalid bridge index %q: %w", *busName, err)
			}
		}
		return pal.NewMCP2221A(byte(idx)).WithLogger(log), "mcp2221a#" + strconv.FormatUint(idx, 10), nil
	case "periph":
		return pal.NewPeriph(*busName).WithLogger(log), *busName, nil
	}
	return nil, "", fmt.Errorf("unknown transport %q", *transport)
}

func parseAddr(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint16(v), nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] read|emissivity [value]|id|reg <hex>|watch|shell\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	log := newLogger()

	addr, err := parseAddr(*addrFlag)
	if err != nil {
		log.Fatal(err)
	}
	bus, name, err := openBus(addr, log.WithField("prefix", *transport))
	if err != nil {
		log.Fatal(err)
	}
	if c, ok := bus.(closer); ok {
		defer c.Close()
	}

	args := flag.Args()
	if len(args) > 0 && args[0] == "watch" {
		if err := runWatch(bus, name, addr, args[1:], log); err != nil {
			log.WithError(err).Error("watch failed")
			os.Exit(1)
		}
		return
	}

	dev := mlx90614.New(bus, mlx90614.Config{
		Address:     addr,
		AutoInitBus: *autoInit,
		VerifyPEC:   *verifyPEC,
	})
	if err := dev.Init(); err != nil {
		log.WithError(err).Fatal("init failed")
	}
	if code := newShell(dev, log).Run(args...); code != 0 {
		os.Exit(code)
	}
}
