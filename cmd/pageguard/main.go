package main

import "github.com/ppiankov/pageguard/internal/cli"

func main() {
	cli.Execute()
}
