// Package api is the HTTP boundary of the moderation service: it accepts
// asynchronous moderation requests, reports their results, and offers
// synchronous scoring endpoints. Handlers translate HTTP concerns to store,
// queue and scoring calls and map their errors to status codes.
package api
