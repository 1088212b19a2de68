// Package app wires the consolidation web service together: configuration,
// logging, OpenTelemetry, services, handlers and the HTTP server lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, config.yaml and GSC_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Create the consolidation, health and optional Search Console services
//	4. Set up the chi router and middleware chain
//	5. Start the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Run returns on SIGINT, SIGTERM or context cancellation after a graceful
// shutdown. The package never calls os.Exit.
package app
