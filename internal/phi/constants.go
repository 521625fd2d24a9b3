// Package phi provides the golden-ratio constants phyllotaxis keeps
// circling back to.
package phi

import "math"

// Phi is the golden ratio.
const Phi = 1.6180339887498948

// GoldenAngle is a full turn divided by Φ², in radians (~2.4 rad,
// 137.5°). Advancing by it never lands on a previous angle, which is
// why so many plants converge on it as their divergence angle.
var GoldenAngle = 2 * math.Pi / (Phi * Phi)

// GoldenAngleDeg is GoldenAngle in degrees, the form configs use.
var GoldenAngleDeg = GoldenAngle * 180 / math.Pi
