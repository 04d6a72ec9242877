package main

import "BlockBench/cmd"

func main() {
	cmd.Execute()
}
