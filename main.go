package main

import "github.com/Norgate-AV/ncc/cmd"

func main() {
	cmd.Execute()
}
