// Package engine is the composition root that assembles the agent API from
// configuration. It builds the model client, the triage and weather personas,
// the agent registry, and the runner with its middleware, and exposes a
// single Asker that both the HTTP service and the CLI loop drive.
package engine
