// Package facematch provides the vector and geometry primitives shared by the
// registry, the detector clients and the tracker.
package facematch
