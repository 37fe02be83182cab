package main

import (
	"github.com/CompassSecurity/keyscope/internal/cmd"
	"github.com/CompassSecurity/keyscope/internal/cmd/common"
)

func main() {
	common.Run(cmd.Root())
}
