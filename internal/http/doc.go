// Package http provides HTTP handlers and middleware for the task scheduler API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password"}. Response:
//     {"token","expires_at","principal":{"user_id","is_admin"}} with token also
//     surfaced via the `X-Session-Token` header and a `session_token` cookie.
//   - DELETE /sessions/current, DELETE /sessions/{token}: revokes a session token
//     extracted from the Authorization header, session cookie, or path.
//   - GET /users, POST /users, PUT /users/{id}, DELETE /users/{id}: administrator
//     controlled user management endpoints exchanging the `userDTO` payload defined in
//     user_handler.go.
//   - GET /tasks, POST /tasks, GET /tasks/{id}, PUT /tasks/{id}, DELETE /tasks/{id}:
//     task request endpoints exchanging the `taskDTO` payload defined in
//     task_handler.go. Every create/update re-invokes the scheduling engine;
//     responses carry either solved sessions or an infeasibility/timeout diagnostic.
//   - GET /events, POST /events, GET /events/{id}, PUT /events/{id}, DELETE /events/{id}:
//     calendar event endpoints exchanging the `eventDTO` payload defined in
//     event_handler.go. List responses expand recurrence rules into concrete
//     occurrences within the requested window (or day/week/month period shortcut).
//   - GET /ump, PUT /ump: the authenticated principal's own standing scheduling
//     preferences, exchanging the `umpDTO` payload defined in ump_handler.go.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
