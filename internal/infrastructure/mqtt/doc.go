// Package mqtt provides the broker connection shared by the miio device
// facade and the MQTT endpoint surface.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS and a 1MB payload cap
//   - Wildcard subscriptions restored after reconnect
//   - A retained bridge status topic with Last Will for crash detection
//
// Messages are delivered in arrival order (paho OrderMatters). Device event
// ordering in the binding engine relies on this.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, "miiobridge/status/bridge-01")
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("miio/event/#", 1, func(topic string, payload []byte) error {
//	    levels := mqtt.SplitTopic(topic)
//	    ...
//	})
package mqtt
