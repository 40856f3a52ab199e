// Package token issues and verifies the HMAC-signed bearer tokens that
// identify an owner to the HTTP API. The subject claim carries the owner ID.
package token
