// Package health provides liveness and readiness probes and their HTTP
// handlers.
//
// Probes compose with [All]. [Fixed] is a static result and [CheckFunc]
// adapts a plain function. [ShutdownGate] fails readiness once shutdown
// starts so the load balancer drains the instance before listeners close.
package health
