package main

import "github.com/arenalab/arena-server/internal/cli"

func main() {
	cli.Execute()
}
