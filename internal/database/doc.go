// Package database opens the PostgreSQL pool the event recorder writes to.
package database
