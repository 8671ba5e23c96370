// Package mqtthost exposes accessories to generic automation hosts over MQTT.
//
// Topics, under the configured prefix:
//
//	{prefix}/accessory/{uuid}                          descriptor, retained
//	{prefix}/state/{uuid}/{service}/{characteristic}   pushed value, retained
//	{prefix}/reachability/{uuid}                       reachability, retained
//	{prefix}/command/{uuid}                            set, host -> bridge
//	{prefix}/ack/{uuid}                                set result
//	{prefix}/request/{request_id}                      get, host -> bridge
//	{prefix}/response/{request_id}                     get result
//
// Observer callbacks run on the loop. They only enqueue; a sender goroutine
// started by Run does the publishing.
package mqtthost
