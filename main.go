package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chat-service/config"
	"chat-service/database"
	"chat-service/event"
	"chat-service/event/listener"
	"chat-service/router"
	"chat-service/socketio"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	log.SetPrefix("chat-service: ")

	config.MustLoad()

	rest := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		AppName:               "chat-service",
		BodyLimit:             5 * 1024 * 1024,
	})

	corsConfig := cors.Config{}
	if origins := config.Config("CORS_ORIGIN"); origins != "" {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	rest.Use(cors.New(corsConfig))

	database.RedisConnect()
	database.PostgresConnect()

	event.RabbitMQConnect([]string{
		"api",
	})

	go listener.Api()

	event.RabbitMQSubscribe([]event.RabbitMQSubscribeListener{
		{
			Queue:   "api",
			Channel: listener.ApiChannel,
		},
	})

	socket := socketio.Init(rest)

	router.Rest(rest)
	router.Socket(socket)

	port := config.Config("SERVER_PORT")
	if port == "" {
		port = "4000"
	}
	go rest.Listen(fmt.Sprintf(":%s", port))
	log.Printf("listening on :%s", port)

	exit := make(chan struct{})
	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	socket.Close(nil)
	event.RabbitMQChannel.Close()
	event.RabbitMQConnection.Close()
	event.InLogFile.Close()
	event.OutLogFile.Close()
	os.Exit(0)
}
