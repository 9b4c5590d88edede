package main

import "github.com/papapumpkin/vchain/cmd"

func main() {
	cmd.Execute()
}
