package main

import "github.com/mcoot/bingoroom/internal/cli"

func main() {
	cli.Execute()
}
