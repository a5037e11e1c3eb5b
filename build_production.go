//go:build production

package main

// isPackaged is true for `wails build` output, which sets the production tag.
const isPackaged = true
