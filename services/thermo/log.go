// services/thermo/log.go
package thermo

import (
	"github.com/sirupsen/logrus"

	"mlx90614-go/types"
)

// LogPublisher writes readings to a logger.
type LogPublisher struct {
	Log *logrus.Entry
}

func (p LogPublisher) PublishInfo(id string, info types.Info) error {
	p.Log.WithFields(logrus.Fields{"id": id, "driver": info.Driver, "detail": info.Detail}).Info("info")
	return nil
}

func (p LogPublisher) PublishReading(id string, r types.Reading) error {
	p.Log.WithFields(logrus.Fields{
		"id":         id,
		"seq":        r.Seq,
		"object_c":   float64(r.Object.DeciC) / 10,
		"ambient_c":  float64(r.Ambient.DeciC) / 10,
		"emissivity": r.Emissivity.Emissivity,
	}).Info("reading")
	return nil
}

func (p LogPublisher) PublishStatus(id string, st types.CapabilityStatus) error {
	e := p.Log.WithFields(logrus.Fields{"id": id, "link": st.Link})
	if st.Error != "" {
		e.WithField("code", st.Error).Warn("status")
		return nil
	}
	e.Info("status")
	return nil
}

// Fanout publishes to every publisher in order, returning the first error.
type Fanout []Publisher

func (f Fanout) PublishInfo(id string, info types.Info) error {
	var first error
	for _, p := range f {
		if err := p.PublishInfo(id, info); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f Fanout) PublishReading(id string, r types.Reading) error {
	var first error
	for _, p := range f {
		if err := p.PublishReading(id, r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f Fanout) PublishStatus(id string, st types.CapabilityStatus) error {
	var first error
	for _, p := range f {
		if err := p.PublishStatus(id, st); err != nil && first == nil {
			first = err
		}
	}
	return first
}
