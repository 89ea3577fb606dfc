// Package config provides database connection configuration for tests.
package config
