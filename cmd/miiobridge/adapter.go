package main

import "github.com/nerrad567/gray-logic-miio/internal/infrastructure/mqtt"

// mqttAdapter adapts *mqtt.Client to the plain handler signature used by the
// miio client and the MQTT endpoint host.
type mqttAdapter struct {
	*mqtt.Client
}

func (a mqttAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	return a.Client.Subscribe(topic, qos, handler)
}
