package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"mlx90614-go/drivers/mlx90614"
	"mlx90614-go/services/thermo"
)

// runWatch polls through the thermometer service until interrupted.
func runWatch(bus mlx90614.Bus, name string, addr uint16, args []string, log *logrus.Entry) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "JSON service config (default: one sensor at -addr)")
	mqttURL := fs.String("mqtt", "", "Broker URL, e.g. mqtt://host:1883/site")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := thermo.DefaultConfig()
	cfg.Devices[0].Addr = addr
	if *cfgPath != "" {
		f, err := os.Open(*cfgPath)
		if err != nil {
			return err
		}
		cfg, err = thermo.DecodeConfig(f)
		f.Close()
		if err != nil {
			return err
		}
	}
	cfg.AutoInitBus = cfg.AutoInitBus && *autoInit
	cfg.VerifyPEC = cfg.VerifyPEC && *verifyPEC
	if *mqttURL != "" {
		cfg.MQTT = &thermo.MQTTConfig{URL: *mqttURL}
	}

	pubs := thermo.Fanout{thermo.LogPublisher{Log: log.WithField("prefix", "reading")}}
	var mq *thermo.MQTTPublisher
	if cfg.MQTT != nil {
		var err error
		if mq, err = thermo.NewMQTTPublisher(*cfg.MQTT, log); err != nil {
			return err
		}
		if err := mq.Connect(); err != nil {
			return err
		}
		defer mq.Close()
		pubs = append(pubs, mq)
	}

	svc, err := thermo.New(bus, name, cfg, pubs, log)
	if err != nil {
		return err
	}
	if mq != nil {
		if err := mq.Control(svc); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := svc.Run(ctx); err != context.Canceled {
		return err
	}
	return nil
}
