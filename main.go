package main

import "github.com/msandoval/flasharb/cmd"

func main() {
	cmd.Execute()
}
