package influxdb

import "github.com/influxdata/influxdb-client-go/v2/api/write"

// Measurement names written by the bridge.
const (
	MeasurementCharacteristic = "characteristic"
	MeasurementReachability   = "reachability"
)

// CharacteristicPoint identifies one pushed characteristic value.
type CharacteristicPoint struct {
	AccessoryID    string
	DisplayName    string
	Service        string
	Characteristic string
	Value          float64
}

// WriteCharacteristic records a characteristic value. Booleans should be
// passed as 0 or 1 so every point of a series has the same field type.
func (c *Client) WriteCharacteristic(p CharacteristicPoint) {
	if !c.IsConnected() {
		return
	}

	c.writer.WritePoint(write.NewPoint(
		MeasurementCharacteristic,
		map[string]string{
			"accessory":      p.AccessoryID,
			"name":           p.DisplayName,
			"service":        p.Service,
			"characteristic": p.Characteristic,
		},
		map[string]any{"value": p.Value},
		c.now(),
	))
}

// WriteReachability records an accessory becoming reachable or unreachable.
func (c *Client) WriteReachability(accessoryID, displayName string, reachable bool) {
	if !c.IsConnected() {
		return
	}

	c.writer.WritePoint(write.NewPoint(
		MeasurementReachability,
		map[string]string{
			"accessory": accessoryID,
			"name":      displayName,
		},
		map[string]any{"reachable": reachable},
		c.now(),
	))
}
