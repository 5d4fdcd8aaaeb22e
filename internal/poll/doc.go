// Package poll implements bounded readiness polling.
//
// A Poller repeatedly runs a Probe at a fixed interval until the probe
// reports ready or the wall-clock budget is spent. It is the one primitive
// shared by the stack controller's health-wait sequence and the model-pull
// waiter, both of which use it to avoid racing service startup.
//
// The poller never escalates a timeout on its own: it returns a
// *TimeoutError and the caller decides whether that is fatal.
package poll
