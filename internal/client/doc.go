// Package client wires the session core into one explicitly constructed
// object with a create, use, dispose lifecycle.
//
// # Overview
//
// New builds the component graph: keyring, session store, auth gateway,
// refresh coordinator, query cache, resource clients, rehydrator, and
// the realtime channel. Nothing is a package-level singleton; tests can
// instantiate independent clients side by side.
//
// # Lifecycle
//
//	c, err := client.New(cfg, logger)
//	...
//	c.Start(ctx)   // rehydrate, then begin following the session
//	defer c.Close()
//
// Start blocks until rehydration resolves, so callers can gate
// session-dependent behavior on Rehydrated immediately afterwards.
package client
