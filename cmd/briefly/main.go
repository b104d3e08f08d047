package main

import (
	"github.com/PaultheAICoder/AInewsletter-sub001/cmd/cmd"
)

func main() {
	cmd.Execute()
}
