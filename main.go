package main

import "github.com/kozaktomas/face-explorer/cmd"

func main() {
	cmd.Execute()
}
