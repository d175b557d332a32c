// Package config loads the optional ironrun configuration file. HCL files
// (.hcl) are decoded with gohcl and YAML files (.yaml, .yml) with yaml.v3
// into the same format-agnostic File.
//
// Every field of File is optional: a nil pointer means the file did not set
// it, which lets callers layer file values between defaults and flags.
package config
