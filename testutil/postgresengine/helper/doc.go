// Package helper provides test helpers for lending engine integration tests:
// an adapter-agnostic database wrapper, schema scaffolding, row fixtures and
// observability spies.
package helper
