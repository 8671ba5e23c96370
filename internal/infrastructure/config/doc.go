// Package config handles loading and validating miio bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//
// Gateway tokens, the MQTT password and the HomeKit pin are secrets. Prefer
// environment variables for them and keep the config file at 0600.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, gw := range cfg.Gateways {
//	    fmt.Println(gw.ID, gw.Address)
//	}
package config
