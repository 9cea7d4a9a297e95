// Package config handles loading and validating charge-point configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with CHARGEPOINT_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - MQTT passwords and InfluxDB tokens should be set via environment
//     variables (or a .env file loaded by the command)
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/chargepoint.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Charger.ID)
package config
