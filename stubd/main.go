package main

import (
	"log"

	"github.com/Roughriver74/west-rashod-sub001/internals/env"
	"github.com/Roughriver74/west-rashod-sub001/stubd/server"
)

func main() {
	envs := env.Get()
	serverInstance := server.New(server.Options{})
	if err := serverInstance.Start(envs.LISTEN_ADDR); err != nil {
		log.Fatal("[stubd] failed to start server: ", err)
	}
}
