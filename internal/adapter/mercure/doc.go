// Package mercure implements the "mercure" relay client, publishing events as
// updates to a Mercure hub.
package mercure
