package main

import "github.com/KaramelBytes/ratiostat-cli/cmd"

func main() {
	cmd.Execute()
}
