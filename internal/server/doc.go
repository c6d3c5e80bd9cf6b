// Package server hosts the Fiber HTTP service that exposes the local
// content-addressed cache as a mirror for other packhub installs. Peers fetch
// blobs by primary digest from /blobs/<hex>; diagnostics live under /-/.
// Keep exports narrow and accept explicit dependencies so cmd wiring and
// tests can construct the app without global state.
package server
