package socketio

import (
	"context"
	"time"

	"chat-service/config"
	"chat-service/database"
	"chat-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/socket.io-go-redis/adapter"
	r_type "github.com/zishang520/socket.io-go-redis/types"
	"github.com/zishang520/socket.io/v2/socket"
)

var server *socket.Server

// Init mounts the socket.io endpoint on the fiber app. The Redis adapter is
// the broadcast backbone: room emits are published through Redis so every
// process forwards them to its locally-held connections, which is what lets
// the session manager scale horizontally without sticky routing.
func Init(app *fiber.App) *socket.Server {
	if config.Config("SOCKET_DEBUG") == "true" {
		log.DEBUG = true
	}

	options := socket.DefaultServerOptions()
	options.SetServeClient(true)
	options.SetAllowEIO3(true)
	options.SetPingInterval(25 * time.Second)
	options.SetPingTimeout(20 * time.Second)
	options.SetMaxHttpBufferSize(5000000)
	options.SetConnectTimeout(10 * time.Second)
	options.SetAdapter(&adapter.RedisAdapterBuilder{
		Redis: r_type.NewRedisClient(context.Background(), database.Redis[1]),
		Opts:  &adapter.RedisAdapterOptions{},
	})

	server = socket.NewServer(nil, nil)

	// Handshake auth. A missing or invalid access token terminates the
	// connection here, before any event handler is registered. Tokens still
	// awaiting 2FA validation are rejected the same way.
	server.Use(func(client *socket.Socket, next func(*socket.ExtendedError)) {
		token, _ := client.Conn().Request().Query().Get("token")

		claims, err := utils.CheckAndExtractTokenMetadata(token, "JWT_ACCESS_KEY")
		if err != nil || claims.Otp {
			next(socket.NewExtendedError("unauthorized", nil))
			return
		}

		// Per-user room: every device of this user receives user-directed
		// events.
		client.Join(socket.Room("user:" + claims.Id))
		client.SetData(claims)
		next(nil)
	})

	app.Get("/rt/", adaptor.HTTPHandler(server.ServeHandler(options)))
	app.Post("/rt/", adaptor.HTTPHandler(server.ServeHandler(options)))

	return server
}

// Emit targets the union of the given rooms across all processes. A socket
// subscribed to more than one of them still receives a single copy.
func Emit(event string, message any, rooms ...socket.Room) {
	server.To(rooms...).Emit(event, message)
}
