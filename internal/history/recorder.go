// Package history records characteristic pushes and reachability changes
// as time series.
package history

import (
	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/influxdb"
)

// Writer is the part of the InfluxDB client the recorder uses.
type Writer interface {
	WriteCharacteristic(p influxdb.CharacteristicPoint)
	WriteReachability(accessoryID, displayName string, reachable bool)
}

// Recorder is an accessory.Observer that writes every numeric or boolean
// push. Writes are batched by the client and never block the loop.
type Recorder struct {
	w Writer
}

// NewRecorder creates a Recorder writing to w.
func NewRecorder(w Writer) *Recorder {
	return &Recorder{w: w}
}

// CharacteristicUpdated records value. String values are not recorded.
func (r *Recorder) CharacteristicUpdated(c *accessory.Characteristic, value any) {
	v, ok := numeric(value)
	if !ok {
		return
	}
	s := c.Service()
	acc := s.Accessory()
	r.w.WriteCharacteristic(influxdb.CharacteristicPoint{
		AccessoryID:    acc.UUID,
		DisplayName:    acc.DisplayName,
		Service:        string(s.Type),
		Characteristic: string(c.Type()),
		Value:          v,
	})
}

// ReachabilityUpdated records a reachability change.
func (r *Recorder) ReachabilityUpdated(a *accessory.Accessory, reachable bool) {
	r.w.WriteReachability(a.UUID, a.DisplayName, reachable)
}

func numeric(v any) (float64, bool) {
	switch b := v.(type) {
	case bool:
		if b {
			return 1, true
		}
		return 0, true
	case string, nil:
		return 0, false
	}
	f, err := device.AsFloat(v)
	return f, err == nil
}
