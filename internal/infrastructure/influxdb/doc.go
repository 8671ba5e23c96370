// Package influxdb records characteristic history in InfluxDB v2.
//
// Every value pushed to an accessory endpoint becomes a point in the
// "characteristic" measurement, tagged with accessory, service and
// characteristic; reachability changes go to "reachability".
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // history off
//	}
//	defer client.Close()
//
// Writes are batched according to batch_size and flush_interval.
package influxdb
