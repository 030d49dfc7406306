package main

import "github.com/MeKo-Tech/floorpose/cmd/floorpose/cmd"

func main() {
	cmd.Execute()
}
