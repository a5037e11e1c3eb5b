//go:build !production

package main

const isPackaged = false
