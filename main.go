package main

import "github.com/Norgate-AV/kiln/cmd"

func main() {
	cmd.Execute()
}
