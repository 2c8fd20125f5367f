// Package websocket pushes dataset events to dashboard clients.
//
// Clients connect to /ws and receive JSON messages defined in
// pkg/contracts/events. The first message is a connection acknowledgement.
// After every dataset load or reload the hub broadcasts a dataset_status
// message carrying the new status. The most recent status is replayed to
// clients that connect later, so a dashboard opened mid-load still learns
// when the data becomes ready.
//
// The stream is one-way. Client messages other than heartbeats are read
// and discarded. A client that falls behind its send buffer is
// disconnected and is expected to reconnect.
package websocket
