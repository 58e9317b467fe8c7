// Package animation turns a still photo into the portrait pan/zoom clip that
// backs the final video.
package animation
