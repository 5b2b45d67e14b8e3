// services/thermo/service.go
package thermo

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"mlx90614-go/drivers/mlx90614"
	"mlx90614-go/errcode"
	"mlx90614-go/types"
)

// ErrUnknownDevice is returned for control requests naming no configured device.
var ErrUnknownDevice error = errcode.UnknownDevice

var ErrNotRunning = errors.New("thermo: service not running")

// Publisher receives readings and status changes.
type Publisher interface {
	PublishInfo(id string, info types.Info) error
	PublishReading(id string, r types.Reading) error
	PublishStatus(id string, st types.CapabilityStatus) error
}

type ctrlReq struct {
	id    string
	e     float64
	reply chan error
}

type sensor struct {
	cfg   DeviceConfig
	dev   *mlx90614.Device
	every time.Duration
	due   time.Time
	ready bool
	link  types.Link
	seq   uint32
}

// Service polls MLX90614 sensors sharing one bus. All bus traffic happens on
// the goroutine running Run.
type Service struct {
	bus     mlx90614.Bus
	busName string
	pub     Publisher
	log     *logrus.Entry

	sensors []*sensor
	byID    map[string]*sensor

	ctrl chan ctrlReq
	done chan struct{}

	now func() time.Time
}

// New builds a Service. cfg must be valid.
func New(bus mlx90614.Bus, busName string, cfg Config, pub Publisher, log *logrus.Entry) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = logrus.NewEntry(l)
	}
	s := &Service{
		bus:     bus,
		busName: busName,
		pub:     pub,
		log:     log.WithField("prefix", "thermo"),
		byID:    make(map[string]*sensor, len(cfg.Devices)),
		ctrl:    make(chan ctrlReq),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	for i, dc := range cfg.Devices {
		dcfg := dc.driverConfig(cfg)
		// Only the first device brings the shared bus up.
		dcfg.AutoInitBus = cfg.AutoInitBus && i == 0
		sn := &sensor{
			cfg:   dc,
			dev:   mlx90614.New(bus, dcfg),
			every: dc.Every(),
		}
		s.sensors = append(s.sensors, sn)
		s.byID[dc.ID] = sn
	}
	return s, nil
}

// SetEmissivity asks the running service to program a device's emissivity.
// It blocks until the write completes or ctx is done.
func (s *Service) SetEmissivity(ctx context.Context, id string, e float64) error {
	req := ctrlReq{id: id, e: e, reply: make(chan error, 1)}
	select {
	case s.ctrl <- req:
	case <-s.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run polls until ctx is cancelled. It may be called once.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.done)
	s.log.WithField("devices", len(s.sensors)).Info("thermometer service starting")

	now := s.now()
	for _, sn := range s.sensors {
		sn.due = now
	}

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		now = s.now()
		for _, sn := range s.sensors {
			if now.Before(sn.due) {
				continue
			}
			if !sn.ready {
				s.bringUp(sn)
			}
			if sn.ready {
				s.poll(sn)
			}
			sn.due = now.Add(sn.every)
		}
		resetTimer(timer, s.minDue().Sub(s.now()))

		select {
		case <-ctx.Done():
			s.log.Info("thermometer service stopping")
			return ctx.Err()
		case <-timer.C:
		case req := <-s.ctrl:
			req.reply <- s.handleSet(req)
		}
	}
}

func (s *Service) minDue() time.Time {
	var min time.Time
	for _, sn := range s.sensors {
		if min.IsZero() || sn.due.Before(min) {
			min = sn.due
		}
	}
	return min
}

// bringUp initialises a sensor, publishes its info and applies the
// configured emissivity.
func (s *Service) bringUp(sn *sensor) {
	log := s.log.WithField("id", sn.cfg.ID)
	if err := sn.dev.Init(); err != nil {
		s.fail(sn, types.LinkDown, err)
		return
	}
	info := types.TemperatureInfo{
		Sensor: "mlx90614",
		Addr:   sn.dev.Address(),
		Bus:    s.busName,
	}
	if id, err := sn.dev.ReadID(); err == nil {
		info.ID = id.String()
	} else {
		s.fail(sn, types.LinkDown, err)
		return
	}
	if err := s.applyEmissivity(sn); err != nil {
		s.fail(sn, types.LinkDown, err)
		return
	}
	sn.ready = true
	if s.pub != nil {
		if err := s.pub.PublishInfo(sn.cfg.ID, types.Info{SchemaVersion: 1, Kind: types.KindTemperature, Driver: "mlx90614", Detail: info}); err != nil {
			log.WithError(err).Warn("publish info failed")
		}
	}
	log.WithFields(logrus.Fields{"addr": sn.dev.Address(), "sensor_id": info.ID}).Info("sensor up")
}

// applyEmissivity writes the configured emissivity unless the device already
// holds the same raw value.
func (s *Service) applyEmissivity(sn *sensor) error {
	if sn.cfg.Emissivity == 0 {
		return nil
	}
	want := mlx90614.EncodeEmissivity(sn.cfg.Emissivity)
	cur, err := sn.dev.EmissivityReg()
	if err != nil {
		return err
	}
	if cur == want {
		return nil
	}
	if err := sn.dev.SetEmissivity(sn.cfg.Emissivity); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"id": sn.cfg.ID, "from": cur, "to": want}).Info("emissivity written")
	return nil
}

func (s *Service) poll(sn *sensor) {
	r, err := s.read(sn)
	if err != nil {
		s.fail(sn, types.LinkDegraded, err)
		return
	}
	s.setLink(sn, types.LinkUp, "")
	if s.pub != nil {
		if err := s.pub.PublishReading(sn.cfg.ID, r); err != nil {
			s.log.WithField("id", sn.cfg.ID).WithError(err).Warn("publish reading failed")
		}
	}
}

func (s *Service) read(sn *sensor) (types.Reading, error) {
	obj, err := sn.dev.Read16(mlx90614.RegObject1)
	if err != nil {
		return types.Reading{}, err
	}
	amb, err := sn.dev.Read16(mlx90614.RegAmbient)
	if err != nil {
		return types.Reading{}, err
	}
	em, err := sn.dev.EmissivityReg()
	if err != nil {
		return types.Reading{}, err
	}
	sn.seq++
	return types.Reading{
		Object:  types.TemperatureValue{DeciC: mlx90614.DeciCelsius(obj)},
		Ambient: types.TemperatureValue{DeciC: mlx90614.DeciCelsius(amb)},
		Emissivity: types.EmissivityValue{
			Emissivity: mlx90614.DecodeEmissivity(em),
			Raw:        em,
		},
		Seq: sn.seq,
		TS:  s.now().UnixMilli(),
	}, nil
}

func (s *Service) handleSet(req ctrlReq) error {
	sn, ok := s.byID[req.id]
	if !ok {
		return ErrUnknownDevice
	}
	if !sn.ready {
		return errcode.Busy
	}
	if err := sn.dev.SetEmissivity(req.e); err != nil {
		s.log.WithFields(logrus.Fields{"id": req.id, "code": errcode.Of(err)}).WithError(err).Warn("set emissivity failed")
		return err
	}
	s.log.WithFields(logrus.Fields{"id": req.id, "emissivity": req.e}).Info("emissivity set")
	// Next poll reports the new value.
	sn.due = s.now()
	return nil
}

func (s *Service) fail(sn *sensor, link types.Link, err error) {
	code := errcode.Of(err)
	s.log.WithFields(logrus.Fields{"id": sn.cfg.ID, "code": code}).WithError(err).Warn("sensor error")
	if link == types.LinkDown {
		sn.ready = false
	}
	s.setLink(sn, link, string(code))
}

func (s *Service) setLink(sn *sensor, link types.Link, code string) {
	if sn.link == link && link == types.LinkUp {
		return
	}
	sn.link = link
	if s.pub == nil {
		return
	}
	st := types.CapabilityStatus{Link: link, TS: s.now().UnixMilli(), Error: code}
	if err := s.pub.PublishStatus(sn.cfg.ID, st); err != nil {
		s.log.WithField("id", sn.cfg.ID).WithError(err).Warn("publish status failed")
	}
}
