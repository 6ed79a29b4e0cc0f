// Package main provides the shelter CLI.
package main

import "github.com/mesh-intelligence/shelter/internal/cli"

func main() {
	cli.Execute()
}
