package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/acctmgr/internal/app"
	"github.com/dmitrijs2005/acctmgr/internal/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer a.Close()

	a.Run(ctx, os.Stdin, os.Stdout)

}
