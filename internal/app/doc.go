// Package app wires the options dashboard API together and manages its
// lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, config.yaml and FNO_* variables
//  2. Initialize logging and OpenTelemetry
//  3. Resolve the data and logs directories
//  4. Create the dataset source, dataset service and health service
//  5. Set up middleware and routes
//  6. Start the HTTP server, then load the dataset in the background
//
// The server answers health checks immediately. Data routes return 503
// with Retry-After until the first load completes.
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Tests build an Application with New and drive Router directly.
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. Stop drains in-flight requests within
// Server.ShutdownTimeout, flushes telemetry and closes the log file.
package app
