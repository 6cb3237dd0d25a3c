// Package main provides the entry point for the changemon CLI.
package main

func main() {
	Execute()
}
