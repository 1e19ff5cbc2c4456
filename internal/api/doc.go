// Package api is the HTTP facade of the WOD pipeline. Handlers decode and
// validate requests, delegate to service.WodService and render JSON; errors
// are mapped to status codes in one place (MapErrorToStatusCode) so no
// internal detail reaches a client.
package api
