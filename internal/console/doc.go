// Package console provides an interactive hardware simulator for the
// charger. Each command line is turned into a hardware event (plugin,
// plugout, swipe) or an availability change (off, on).
package console
