// Package geo provides the pure geospatial primitives used for helper
// matching: great-circle distance, compass bearing, bounding-box
// pre-filtering and a straight-line ETA heuristic. The package holds no
// state and performs no I/O.
package geo
