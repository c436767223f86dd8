// Package bridge relays fixed-size frames between a serial device and a
// single TCP client.
//
// Two goroutines share the work. The goroutine calling Service.Run accepts
// one client at a time and, for that client, reads 12-byte frames and sends
// them to the device; a second client waits in the listen backlog until the
// first detaches. The Poller goroutine samples the device every poll interval
// and writes each complete frame to the attached client, dropping frames
// while nobody is attached.
//
// Shutdown is driven by a Shutdown token. NotifySignals records SIGINT as an
// interrupt (exit status 0) and SIGTERM as a terminate (exit status 1); the
// blocked Accept or Read then fails, the loop re-checks the token, the poller
// is cancelled and joined, and the device, client socket and listening socket
// are closed in that order.
package bridge
