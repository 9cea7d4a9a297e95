// Package hmi draws the charger front panel (display, status light and
// relay line) in a terminal.
//
// Light colours: Available green, Occupied yellow, Charging blue,
// Error red, Off dark.
package hmi
