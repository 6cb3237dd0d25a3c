// Package config provides the configuration of changemon.
//
// A Config is built from defaults, then an optional YAML file, then the
// environment, then command line flags, each layer overriding the
// previous one. It is passed explicitly to the components that need it;
// nothing in the program reads process-wide configuration.
package config
