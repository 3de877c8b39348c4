package main

import (
	"context"
	"log"
	"os"

	"github.com/securechat/securechat/internal/app"
	"github.com/securechat/securechat/internal/buildinfo"
	"github.com/securechat/securechat/internal/cli"
	"github.com/securechat/securechat/internal/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	client := cli.NewApp(a.Auth(), a.Chat(), a.Captchas())

	if err := a.Run(ctx, client.Run); err != nil {
		log.Fatalf("%v", err)
	}
}
