package main

import "github.com/oneroskilfu/ireva-app-sub001/cmd"

func main() {
	cmd.Execute()
}
