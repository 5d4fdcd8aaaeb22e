// Package port checks whether the host ports the stack publishes are
// already bound by another process.
//
// The check asks the OS directly with net.Listen/net.ListenPacket. The
// stack controller runs it before "compose up" and reports conflicts as a
// warning only: a bound port usually means the stack is already running.
package port
