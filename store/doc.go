// Package store opens and configures the SQLite database that receives an imported feed.
package store
