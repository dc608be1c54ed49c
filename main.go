package main

import "github.com/RyanBlaney/vowelspace/cmd"

func main() {
	cmd.Execute()
}
