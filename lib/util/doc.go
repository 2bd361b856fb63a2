// Package util provides small building blocks shared by the sKV packages.
//
// The package contains:
//   - statistics: Mean / standard deviation helpers for sensor readings and a
//     distribution quality score for key placement across nodes
//   - lockfreempsc: A lock-free Multi-Producer Single-Consumer (MPSC) queue used
//     to hand measurement events from request goroutines to the broker publisher
//
// None of the components log or depend on other sKV packages.
package util
