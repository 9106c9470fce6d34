package main

import "wconnect/cmd"

func main() {
	cmd.Execute()
}
