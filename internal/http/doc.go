// Package http provides HTTP handlers and middleware for the booking API.
//
// The router exposes the following endpoints:
//   - GET /rooms: the room directory.
//   - GET /availability?start=&end=: every room with an `available` flag for
//     the half-open window. The normalized window is echoed back.
//   - GET /bookings, POST /bookings: the caller's bookings, and booking
//     creation with body {"room_id","start","end"}.
//   - GET /bookings/{id}, PUT /bookings/{id}, DELETE /bookings/{id}: owner only
//     read, move ({"start","end"}) and soft cancel.
//   - GET /bookings/{id}/admission: owner only admission state with a
//     `poll_after_seconds` hint.
//   - POST /bookings/{id}/session: starts the live session once admitted.
//   - GET /meetings/{id}: participant view of the admission state. No identity
//     is required.
//   - POST /checkins: badge reader ingestion with body {"booking_id"},
//     authenticated by the `X-Reader-Key` header or a bearer token.
//
// Identity is asserted by an upstream proxy through a configurable header
// (X-User-ID by default). Timestamps are RFC 3339 in UTC. Errors are returned
// as {"error_code","message"}.
package http
