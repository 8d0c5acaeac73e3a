// Package main provides the CLI entrypoint for jinglebox.
package main

func main() {
	Execute()
}
