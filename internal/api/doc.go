// Package api provides the CSGOEmpire trading REST client.
//
// REST endpoint:
//   - https://csgoempire.com/api/v2
//
// Requests carry "Authorization: Bearer <api key>". Without a key the header is
// sent empty so metadata and public reads still work.
//
// Every response body is decoded as JSON, including bodies the server sends as a
// JSON-encoded string.
package api
