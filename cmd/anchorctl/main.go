package main

import "github.com/KiraKC/Spectacle-Hypertext/internal/cli"

func main() {
	cli.Execute()
}
