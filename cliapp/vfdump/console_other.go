//go:build !windows

package main

func initConsole() {}
