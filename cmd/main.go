package main

import (
	"github.com/velouria/commerce/internal/app"
	"github.com/velouria/commerce/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
