package main

import "github.com/AvaProtocol/ap-atlas/cmd"

func main() {
	cmd.Execute()
}
