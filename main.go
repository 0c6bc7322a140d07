package main

import "github.com/agenthost/agenthost-mini/cmd"

func main() {
	cmd.Execute()
}
