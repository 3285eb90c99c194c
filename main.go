package main

import "github.com/Tiliavir/boat-time-tracker/cmd"

func main() {
	cmd.Execute()
}
