package main

import "github.com/blockpanel/blockpanel/cmd/blockpanel/cmd"

func main() {
	cmd.Execute()
}
