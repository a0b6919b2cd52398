// Package main is the entry point for the didresolve command.
package main

import "github.com/pilacorp/go-did-resolver/internal/cli"

func main() {
	cli.Execute()
}
