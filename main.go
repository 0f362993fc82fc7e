package main

import "github.com/mikesmitty/swma/cmd"

func main() {
	cmd.Execute()
}
