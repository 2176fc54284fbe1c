package main

import (
	"github.com/drmplay-cli/drmplay/cmd"
	"github.com/drmplay-cli/drmplay/config"
	"github.com/drmplay-cli/drmplay/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())
	cmd.Execute()
}
