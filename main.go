package main

import (
	"github.com/ColonelBlimp/bintype/cmd"
	"github.com/ColonelBlimp/bintype/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
