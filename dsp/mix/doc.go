// Package mix provides block-level gain and summing kernels used when
// combining dry, delayed and granular signals.
//
// Kernels are selected once per process from a registry keyed by CPU
// features; a portable generic implementation is always registered.
package mix
