// Package platform supplies the default I²C bus factory for the build target:
// RP2 boards via TinyGo's machine package, Linux hosts via periph, and an
// empty factory elsewhere.
package platform
