// cmd/pico-mlx90614/main.go
//go:build rp2040 || rp2350

package main

import (
	"machine"
	"strconv"
	"time"

	"mlx90614-go/drivers/mlx90614"
	"mlx90614-go/drivers/mlx90614/pal"
	"mlx90614-go/errcode"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	// SMBus limit is 100 kHz.
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 100 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	}); err != nil {
		println("Error: i2c0 configure:", err.Error())
	}

	dev := mlx90614.New(pal.NewTx(i2c), mlx90614.Config{VerifyPEC: true})
	if err := dev.Init(); err != nil {
		println("Error:", err.Error())
	}
	if id, err := dev.ReadID(); err == nil {
		println("Info:", dev.String(), "id", id.String())
	} else {
		println("Error:", string(errcode.Of(err)), err.Error())
	}

	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	for t := range tick.C {
		obj, oerr := dev.Read16(mlx90614.RegObject1)
		amb, aerr := dev.Read16(mlx90614.RegAmbient)
		switch {
		case oerr != nil:
			println(t.Format("15:04:05"), "Error:", string(errcode.Of(oerr)))
		case aerr != nil:
			println(t.Format("15:04:05"), "Error:", string(errcode.Of(aerr)))
		default:
			o, a := mlx90614.DeciCelsius(obj), mlx90614.DeciCelsius(amb)
			println(t.Format("15:04:05"), "object", deci(o), "ambient", deci(a))
		}
	}
}

// deci formats tenths of a degree.
func deci(v int16) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return sign + strconv.Itoa(int(v/10)) + "." + strconv.Itoa(int(v%10))
}
