package main

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/sirupsen/logrus"

	"mlx90614-go/drivers/mlx90614"
	"mlx90614-go/errcode"
)

const devKey = "$dev"

// Shell wraps an ishell console bound to one device.
type Shell struct {
	Shell *ishell.Shell
	log   *logrus.Entry
}

func newShell(dev *mlx90614.Device, log *logrus.Entry) *Shell {
	s := &Shell{Shell: ishell.New(), log: log}
	s.Shell.Set(devKey, dev)
	s.Shell.SetPrompt(dev.String() + " > ")
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// Run executes args as one command, or starts the console when args is
// empty or "shell". It returns a process exit code.
func (s *Shell) Run(args ...string) int {
	if len(args) == 0 || (len(args) == 1 && args[0] == "shell") {
		s.Shell.Run()
		return 0
	}
	if err := s.Shell.Process(args...); err != nil {
		s.log.WithError(err).Error("command failed")
		return 2
	}
	return 0
}

func devFrom(c *ishell.Context) *mlx90614.Device {
	return c.Get(devKey).(*mlx90614.Device)
}

// cmdErr reports err with its stable code.
func cmdErr(c *ishell.Context, err error) {
	c.Err(fmt.Errorf("%s: %v", errcode.Of(err), err))
}

var commands = []*ishell.Cmd{
	&ReadCmd,
	&EmissivityCmd,
	&IDCmd,
	&RegCmd,
}

var (
	// ReadCmd prints object and ambient temperatures.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "read object and ambient temperature",
		Func: func(c *ishell.Context) {
			d := devFrom(c)
			obj, err := d.ReadObjectTempC()
			if err != nil {
				cmdErr(c, err)
				return
			}
			amb, err := d.ReadAmbientTempC()
			if err != nil {
				cmdErr(c, err)
				return
			}
			c.Printf("object  %7.2f °C %7.2f °F\n", obj, mlx90614.Fahrenheit(obj))
			c.Printf("ambient %7.2f °C %7.2f °F\n", amb, mlx90614.Fahrenheit(amb))
		},
	}

	// EmissivityCmd reads or programs emissivity.
	EmissivityCmd = ishell.Cmd{
		Name:    "emissivity",
		Aliases: []string{"e"},
		Help:    "[VALUE 0.1..1.0]",
		Func: func(c *ishell.Context) {
			d := devFrom(c)
			if len(c.Args) > 0 {
				v, err := strconv.ParseFloat(c.Args[0], 64)
				if err != nil {
					c.Err(fmt.Errorf("Invalid VALUE: %v", err))
					return
				}
				if err := d.SetEmissivity(v); err != nil {
					cmdErr(c, err)
					return
				}
			}
			raw, err := d.EmissivityReg()
			if err != nil {
				cmdErr(c, err)
				return
			}
			c.Printf("emissivity %.4f (0x%04x)\n", mlx90614.DecodeEmissivity(raw), raw)
		},
	}

	// IDCmd prints the factory identifier.
	IDCmd = ishell.Cmd{
		Name: "id",
		Help: "print the 64-bit factory id",
		Func: func(c *ishell.Context) {
			id, err := devFrom(c).ReadID()
			if err != nil {
				cmdErr(c, err)
				return
			}
			c.Println(id.String())
		},
	}

	// RegCmd reads one raw register word.
	RegCmd = ishell.Cmd{
		Name: "reg",
		Help: "REG (hex, e.g. 0x07)",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("REG required"))
				return
			}
			reg, err := strconv.ParseUint(c.Args[0], 0, 8)
			if err != nil {
				c.Err(fmt.Errorf("Invalid REG: %v", err))
				return
			}
			v, err := devFrom(c).Read16(byte(reg))
			if err != nil {
				cmdErr(c, err)
				return
			}
			c.Printf("0x%02x = 0x%04x (%d)\n", reg, v, v)
		},
	}
)
