// Package sdk is the process-wide entry point of the faultline
// error/crash-monitoring SDK.
//
// The package owns a single global monitoring state: the current [Hub]
// (a client paired with a scope) that every capture call is routed through.
// Bring it up once near the top of main and close it on the way out:
//
//	sdk.Start(sdk.Options{
//	    Release:     "my-app@1.4.2",
//	    Environment: "production",
//	})
//	defer sdk.Close()
//
//	if err := doWork(); err != nil {
//	    sdk.CaptureError(err)
//	}
//
// # Before start
//
// Every capture entry point is safe to call before Start: it degrades to a
// no-op returning an empty [EventID], with no disk or network side effects.
// The SDK never returns an error or panics out of Start or Close; anomalies
// are diagnostics on the configured logger only.
//
// # Re-start
//
// Calling Start while already started is a supported transition: the current
// hub is replaced and the configured integrations are installed for the new
// epoch, without tearing the previous hub down. Close performs the full
// teardown (integration uninstall, platform observer stop, client flush).
//
// # Integrations
//
// Optional plugins extend the SDK at start time. Options.Integrations names
// which ones to install; unknown identifiers and duplicates are skipped with
// a diagnostic and never abort the start sequence.
//
// # Deferred platform startup
//
// Platform-bound subsystems (binary-image cache, device-state observation,
// launch timing) start asynchronously on a serial run loop after Start
// returns; their readiness is eventual and observed only through their own
// state, e.g. [CurrentAppStartMeasurement].
package sdk
